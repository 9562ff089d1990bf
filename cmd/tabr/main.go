package main

import "github.com/devbush/tabr/internal/adapters/cli"

func main() {
	cli.Execute()
}
