package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/dshills/lspsync/internal/version"
)

// NewApp creates the CLI application.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "lspsync",
		Usage:   "Synchronize documents with language servers",
		Version: version.Version(),
		Description: `lspsync keeps text buffers consistent with language-server replicas
and drives server-side operations against them.

Examples:
  lspsync fmt main.go
  lspsync fmt --config lspsync.toml --write main.go`,
		Commands: []*cli.Command{
			fmtCommand(),
			versionCommand(),
		},
	}
}

// Execute runs the CLI application.
func Execute() error {
	return NewApp().Run(context.Background(), os.Args)
}

// configureLogging applies the effective log level.
func configureLogging(level string) {
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown log level, keeping default")
		return
	}
	logrus.SetLevel(parsed)
}
