package main

import "codelore/cmd"

func main() {
	cmd.Execute()
}
