package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"codelore/internal/knowledge"
	"codelore/internal/logger"
	"codelore/internal/store"
)

var flagSSE string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing the knowledge base tools",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path, err := dbPath()
	if err != nil {
		return err
	}
	if err := ensureDBDir(path); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	log := logger.ForComponent("mcp")
	svc := knowledge.New(st, log)

	s := mcpserver.NewMCPServer("codelore", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(indexFileTool(), makeIndexFileHandler(svc))
	s.AddTool(indexBatchTool(), makeIndexBatchHandler(svc))
	s.AddTool(searchKnowledgeTool(), makeSearchHandler(svc))
	s.AddTool(getFileContextTool(), makeFileContextHandler(svc))
	s.AddTool(findRelatedTool(), makeFindRelatedHandler(svc))
	s.AddTool(searchByTypeTool(), makeSearchByTypeHandler(svc))
	s.AddTool(getStatsTool(), makeStatsHandler(svc))
	s.AddTool(analyzeDependenciesTool(), makeAnalyzeHandler(svc))

	if flagSSE != "" {
		log.Info("serving MCP over SSE", "addr", flagSSE, "db", path)
		return mcpserver.NewSSEServer(s).Start(flagSSE)
	}
	log.Info("serving MCP over stdio", "db", path)
	return mcpserver.ServeStdio(s)
}

func init() {
	serveCmd.Flags().StringVar(&flagSSE, "sse", "", "serve over SSE on this address (e.g. :8000) instead of stdio")
	rootCmd.AddCommand(serveCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

var writeAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(false),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func fileTypeValues() []string {
	types := store.FileTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func technologyValues() []string {
	techs := store.Technologies()
	out := make([]string, len(techs))
	for i, t := range techs {
		out[i] = string(t)
	}
	return out
}

func indexFileTool() mcp.Tool {
	return mcp.NewTool("index_file",
		mcp.WithDescription("Index one file's structured knowledge: summary, key elements, dependencies, and tags extracted by the client. Re-indexing an unchanged file (same content_hash) is a no-op."),
		mcp.WithToolAnnotation(writeAnnotation),
		mcp.WithString("path", mcp.Required(), mcp.Description("Full path to the file, unique within the store")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("file_type", mcp.Required(), mcp.Description("Type of file"), mcp.Enum(fileTypeValues()...)),
		mcp.WithString("technology", mcp.Required(), mcp.Description("Technology category"), mcp.Enum(technologyValues()...)),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Brief summary of the file purpose")),
		mcp.WithArray("key_elements", mcp.Description("Important elements (resources, classes, functions)"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithArray("dependencies", mcp.Description("Paths this file depends on"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithArray("tags", mcp.Description("Searchable tags"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("content_hash", mcp.Required(), mcp.Description("Hash of file content for change detection")),
		mcp.WithObject("metadata", mcp.Description("Extra metadata (line_count, complexity, ...)")),
	)
}

func indexBatchTool() mcp.Tool {
	return mcp.NewTool("index_batch",
		mcp.WithDescription("Index multiple files at once. Each item succeeds or fails independently; the result list keeps input order."),
		mcp.WithToolAnnotation(writeAnnotation),
		mcp.WithArray("files", mcp.Required(), mcp.Description("Records to index, same shape as index_file arguments")),
	)
}

func searchKnowledgeTool() mcp.Tool {
	return mcp.NewTool("search_knowledge",
		mcp.WithDescription("Keyword search over summaries, key elements, tags, and paths. Deterministic ranking; higher score means more matched terms."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text query, e.g. 'azure storage configuration'")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50, max 100)")),
		mcp.WithString("repo", mcp.Description("Filter by repository")),
		mcp.WithString("file_type", mcp.Description("Filter by file type"), mcp.Enum(fileTypeValues()...)),
		mcp.WithString("technology", mcp.Description("Filter by technology"), mcp.Enum(technologyValues()...)),
	)
}

func getFileContextTool() mcp.Tool {
	return mcp.NewTool("get_file_context",
		mcp.WithDescription("Get the complete stored record for a file path, including its graph-derived dependents."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path", mcp.Required(), mcp.Description("Full path of the file")),
	)
}

func findRelatedTool() mcp.Tool {
	return mcp.NewTool("find_related",
		mcp.WithDescription("Find files related to a path: sharing tags or connected by dependency edges, ranked by number of shared signals."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the reference file")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
	)
}

func searchByTypeTool() mcp.Tool {
	return mcp.NewTool("search_by_type",
		mcp.WithDescription("List files of a given file type or technology category, most recently indexed first."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("value", mcp.Required(), mcp.Description("A file type (e.g. 'bicep') or technology (e.g. 'backend')")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50)")),
	)
}

func getStatsTool() mcp.Tool {
	return mcp.NewTool("get_stats",
		mcp.WithDescription("Get statistics about the knowledge base: counts by repo, file type, and technology."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func analyzeDependenciesTool() mcp.Tool {
	return mcp.NewTool("analyze_dependencies",
		mcp.WithDescription("Analyze the dependency graph around a path: direct dependencies, direct dependents, and a bounded transitive depth map."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to analyze")),
		mcp.WithNumber("max_depth", mcp.Description("Traversal bound (default 10, max 50)")),
	)
}

// --- Wire shapes ---

type recordJSON struct {
	Path         string         `json:"path"`
	Repo         string         `json:"repo"`
	FileType     string         `json:"file_type"`
	Technology   string         `json:"technology"`
	Summary      string         `json:"summary"`
	KeyElements  []string       `json:"key_elements"`
	Dependencies []string       `json:"dependencies"`
	Tags         []string       `json:"tags"`
	ContentHash  string         `json:"content_hash"`
	IndexedAt    time.Time      `json:"indexed_at"`
	CreatedAt    time.Time      `json:"created_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func toRecordJSON(rec store.FileRecord) recordJSON {
	return recordJSON{
		Path:         rec.Path,
		Repo:         rec.Repo,
		FileType:     string(rec.FileType),
		Technology:   string(rec.Technology),
		Summary:      rec.Summary,
		KeyElements:  emptyIfNil(rec.KeyElements),
		Dependencies: emptyIfNil(rec.Dependencies),
		Tags:         emptyIfNil(rec.Tags),
		ContentHash:  rec.ContentHash,
		IndexedAt:    rec.IndexedAt,
		CreatedAt:    rec.CreatedAt,
		Metadata:     rec.Metadata,
	}
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// decodeArgs unmarshals tool arguments into a typed request.
func decodeArgs(req mcp.CallToolRequest, out any) error {
	args := req.GetArguments()
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// jsonResult renders a payload as indented JSON text content.
func jsonResult(payload any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// --- Handler factories ---

func makeIndexFileHandler(svc *knowledge.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in knowledge.IndexInput
		if err := decodeArgs(req, &in); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		res, err := svc.IndexFile(in)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"outcome": string(res.Outcome),
			"record":  toRecordJSON(res.Record),
		}), nil
	}
}

func makeIndexBatchHandler(svc *knowledge.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in struct {
			Files []knowledge.IndexInput `json:"files"`
		}
		if err := decodeArgs(req, &in); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if len(in.Files) == 0 {
			return mcp.NewToolResultError("files is required and must not be empty"), nil
		}

		results := svc.IndexBatch(in.Files)
		items := make([]map[string]any, len(results))
		succeeded := 0
		for i, r := range results {
			if r.Err != nil {
				items[i] = map[string]any{"path": r.Path, "error": r.Err.Error()}
				continue
			}
			succeeded++
			items[i] = map[string]any{"path": r.Path, "outcome": string(r.Outcome)}
		}
		return jsonResult(map[string]any{
			"total":     len(results),
			"succeeded": succeeded,
			"failed":    len(results) - succeeded,
			"results":   items,
		}), nil
	}
}

func makeSearchHandler(svc *knowledge.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		limit := req.GetInt("limit", 0)
		filter := knowledge.SearchFilter{
			Repo:       req.GetString("repo", ""),
			FileType:   req.GetString("file_type", ""),
			Technology: req.GetString("technology", ""),
		}

		results, err := svc.Search(query, limit, filter)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		items := make([]map[string]any, len(results))
		for i, r := range results {
			items[i] = map[string]any{"score": r.Score, "record": toRecordJSON(r.Record)}
		}
		return jsonResult(map[string]any{"count": len(items), "results": items}), nil
	}
}

func makeFileContextHandler(svc *knowledge.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		fc, err := svc.GetFileContext(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"record":               toRecordJSON(fc.Record),
			"dependents":           fc.Dependents,
			"dependency_summaries": fc.DependencySummaries,
		}), nil
	}
}

func makeFindRelatedHandler(svc *knowledge.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		results, err := svc.FindRelated(path, req.GetInt("limit", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		items := make([]map[string]any, len(results))
		for i, r := range results {
			items[i] = map[string]any{
				"path":           r.Record.Path,
				"repo":           r.Record.Repo,
				"file_type":      string(r.Record.FileType),
				"summary":        r.Record.Summary,
				"tags":           emptyIfNil(r.Record.Tags),
				"shared_signals": r.Score,
			}
		}
		return jsonResult(map[string]any{"count": len(items), "related_files": items}), nil
	}
}

func makeSearchByTypeHandler(svc *knowledge.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		value := req.GetString("value", "")
		if value == "" {
			return mcp.NewToolResultError("value is required"), nil
		}
		records, err := svc.SearchByType(value, req.GetInt("limit", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		items := make([]recordJSON, len(records))
		for i, rec := range records {
			items[i] = toRecordJSON(rec)
		}
		return jsonResult(map[string]any{"value": value, "count": len(items), "files": items}), nil
	}
}

func makeStatsHandler(svc *knowledge.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := svc.Stats()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		payload := map[string]any{
			"total_files":         stats.TotalFiles,
			"files_by_repo":       stats.ByRepo,
			"files_by_type":       stats.ByFileType,
			"files_by_technology": stats.ByTechnology,
			"total_dependencies":  stats.TotalDependencies,
		}
		if !stats.LastIndexed.IsZero() {
			payload["last_indexed"] = stats.LastIndexed
		}
		return jsonResult(payload), nil
	}
}

func makeAnalyzeHandler(svc *knowledge.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		analysis, err := svc.AnalyzeDependencies(path, req.GetInt("max_depth", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"root":         analysis.Root,
			"dependencies": analysis.Dependencies,
			"dependents":   analysis.Dependents,
			"depth_map":    analysis.Depths,
		}), nil
	}
}
