package main

import "github.com/EmonKarmaker/ai-support-system/internal/cli"

func main() {
	cli.Execute()
}
