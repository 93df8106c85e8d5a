package main

import "qalog/internal/cli"

func main() {
	cli.Execute()
}
