// Package main is the entry point for the dcadmin CLI.
package main

import "github.com/unbekanntes-pferd/dcadmin/internal/cli"

func main() {
	cli.Execute()
}
