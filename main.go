package main

import "github.com/formvn/formbot/cli"

func main() {
	cli.Execute()
}
