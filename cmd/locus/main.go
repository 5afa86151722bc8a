package main

import "github.com/devicelab-dev/locus/pkg/cli"

func main() {
	cli.Execute()
}
