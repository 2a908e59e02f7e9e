package main

import "contentpilot/cli"

func main() {
	cli.Execute()
}
