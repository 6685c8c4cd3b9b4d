package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/dshills/lspsync/internal/config"
	"github.com/dshills/lspsync/internal/docsync"
	"github.com/dshills/lspsync/internal/executor"
	"github.com/dshills/lspsync/internal/feature"
	"github.com/dshills/lspsync/internal/lspconn"
)

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Usage:     "Format a file through its configured language servers",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a TOML configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (overrides configuration)",
			},
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Write the result back to the file instead of stdout",
			},
			&cli.IntFlag{
				Name:  "tab-size",
				Usage: "Tab size reported to the server",
				Value: 4,
			},
			&cli.BoolFlag{
				Name:  "use-tabs",
				Usage: "Ask for tabs instead of spaces",
			},
		},
		Action: runFmt,
	}
}

func runFmt(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("fmt takes exactly one file argument")
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	level := cmd.String("log-level")
	if level == "" {
		level = cfg.LogLevel
	}
	configureLogging(level)

	path, err := filepath.Abs(cmd.Args().First())
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	docURI := protocol.DocumentURI(uri.File(path))

	reg := lspconn.NewRegistry()
	defer func() {
		if err := reg.Shutdown(context.Background()); err != nil {
			logrus.WithError(err).Warn("server shutdown incomplete")
		}
	}()

	sess := docsync.NewSession(reg,
		docsync.WithLanguageMapping(cfg.Languages),
		docsync.WithSessionWillSaveTimeout(cfg.Timeouts.WillSave))

	lang := sess.LanguageID(docURI)
	names := cfg.ServersForLanguage(lang)
	if len(names) == 0 {
		return fmt.Errorf("no server configured for language %q", lang)
	}
	project := executor.DetectProject(path, lang)
	for _, name := range names {
		srv := cfg.Servers[name]
		conn, err := lspconn.Spawn(ctx, lspconn.SpawnConfig{
			Command:       srv.Command,
			Args:          srv.Args,
			WorkspaceRoot: project.Root,
			Name:          name,
		})
		if err != nil {
			return fmt.Errorf("starting %s: %w", name, err)
		}
		reg.Add(conn, srv.Languages...)
	}

	buf := sess.Open(docURI, string(data))
	defer sess.Close(docURI)

	var opts protocol.FormattingOptions
	opts.TabSize = uint32(cmd.Int("tab-size"))
	opts.InsertSpaces = !cmd.Bool("use-tabs")

	if err := feature.FormatAndApply(ctx, sess, docURI, opts); err != nil {
		return err
	}

	if !cmd.Bool("write") {
		_, err := os.Stdout.WriteString(buf.String())
		return err
	}

	sess.AboutToSave(ctx, docURI)
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return err
	}
	sess.Saved(docURI, time.Now().UnixMilli())
	for _, syn := range sess.SynchronizersFor(docURI) {
		syn.Flush()
	}
	return nil
}
