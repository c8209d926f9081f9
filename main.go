package main

import "github.com/gdex-tools/datahelp-router/cmd"

func main() {
	cmd.Execute()
}
