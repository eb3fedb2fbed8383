package main

import "conduitqa/cli"

func main() {
	cli.Execute()
}
