package main

import "github.com/ayusman/colorhunt/internal/cli"

func main() {
	cli.Execute()
}
