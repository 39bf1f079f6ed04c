package main

import "github.com/fadhlirahim/llm-cli/cmd"

func main() {
	cmd.Execute()
}
