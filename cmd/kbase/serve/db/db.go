// Package dbcmder provides the vector database server cobra command.
package dbcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/kbase/cmd/kbase/services"
	"github.com/papercomputeco/kbase/pkg/chromadb"
	"github.com/papercomputeco/kbase/pkg/config"
)

type dbCommander struct {
	host       string
	port       uint
	persistDir string
	debug      bool

	logger *slog.Logger
}

// Flags bound by the db command, shared with "kbase serve".
var Flags = []string{
	config.FlagChromaHost,
	config.FlagChromaPort,
	config.FlagChromaPersist,
}

const dbLongDesc string = `Run the kbase vector database server.

The server speaks the Chroma REST API v2 subset used by kbase and persists
collections in a SQLite database under the persist directory
(default: ~/.kbase/chroma).`

const dbShortDesc string = "Run the vector database server"

func NewDBCmd() *cobra.Command {
	cmder := &dbCommander{}

	cmd := &cobra.Command{
		Use:   "db",
		Short: dbShortDesc,
		Long:  dbLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, err := services.LoadConfig(cmd, Flags...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagChromaHost, &cmder.host)
	config.AddUintFlag(cmd, config.Flags, config.FlagChromaPort, &cmder.port)
	config.AddStringFlag(cmd, config.Flags, config.FlagChromaPersist, &cmder.persistDir)

	return cmd
}

func (c *dbCommander) run(ctx context.Context, cfg *config.Config) error {
	var closeLog func() error
	var err error
	c.logger, closeLog, err = services.NewLogger(cfg, c.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := NewServerClient(cfg, c.logger)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.ListenAndServe(ctx)
}

// NewServerClient builds the client whose store a vector database server
// exposes. Serving always binds over HTTP, whatever client mode the chroma
// section selects.
func NewServerClient(cfg *config.Config, l *slog.Logger) (*chromadb.Client, error) {
	settings, err := services.ChromaSettings(cfg)
	if err != nil {
		return nil, fmt.Errorf("vector database settings: %w", err)
	}
	settings.APIImpl = chromadb.APIImplREST

	client, err := chromadb.NewClient(settings, chromadb.WithLogger(l))
	if err != nil {
		return nil, fmt.Errorf("creating vector database: %w", err)
	}
	return client, nil
}
