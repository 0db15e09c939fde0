package main

import "github.com/kylixs/flareon/internal/cli"

func main() {
	cli.Execute()
}
