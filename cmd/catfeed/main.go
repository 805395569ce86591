package main

import "github.com/vietddude/catfeed/internal/cli"

func main() {
	cli.Execute()
}
