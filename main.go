package main

import "github.com/devicelab-dev/unified-runner/pkg/cli"

func main() {
	cli.Execute()
}
