package main

import (
	"os"

	"github.com/chmielvu/Forge-Text/internal/cli"
	"github.com/chmielvu/Forge-Text/pkg/logger"
	"github.com/chmielvu/Forge-Text/pkg/logger/console"
)

var version = "0.1.0-dev"

func main() {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  os.Getenv("DEBUG") == "true",
		Logfmt: os.Getenv("LOG_FORMAT") == "logfmt",
	}))

	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
