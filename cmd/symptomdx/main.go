// Package main is the symptomdx command line entry point.
package main

import "github.com/symptom-dx-server/internal/cli"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Main(version)
}
