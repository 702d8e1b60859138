package main

import "github.com/leachuk/jackrabbit/cli"

func main() {
	cli.Execute()
}
