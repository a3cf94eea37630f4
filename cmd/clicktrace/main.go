package main

import "github.com/vincentbai/clicktrace-agent/internal/cli"

func main() {
	cli.Execute()
}
