package main

import "github.com/mvp-joe/jarmeta/internal/cli"

func main() {
	cli.Execute()
}
