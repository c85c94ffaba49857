package main

import "bargain-hunter/cli"

func main() {
	cli.Execute()
}
