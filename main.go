// Package main is the entry point for the srclens CLI.
package main

import "srclens.dev/pkg/srclens/cmd"

func main() {
	cmd.Execute()
}
