package main

import "github.com/isdelr/annotation-hub-be/internal/cli"

func main() {
	cli.Execute()
}
