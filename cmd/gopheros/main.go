package main

import "gopheros/internal/cli"

func main() {
	cli.Execute()
}
