package main

import "github.com/forPelevin/livecut/internal/cli"

func main() {
	cli.Main()
}
