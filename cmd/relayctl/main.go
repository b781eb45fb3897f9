package main

import "github.com/mcoot/battlerelay/internal/cli"

func main() {
	cli.Execute()
}
