package main

import "github.com/berkan-cetinkaya/altcha-access/internal/cli"

func main() {
	cli.Execute()
}
