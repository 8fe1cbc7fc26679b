package main

import (
	"github.com/pressly/dockertester/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	var opts []cli.Options
	if version != "" {
		opts = append(opts, cli.WithVersion(version))
	}
	cli.Main(opts...)
}
