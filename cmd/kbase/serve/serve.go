// Package servecmder provides the serve command with subcommands for running services.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apicmder "github.com/papercomputeco/kbase/cmd/kbase/serve/api"
	dbcmder "github.com/papercomputeco/kbase/cmd/kbase/serve/db"
	"github.com/papercomputeco/kbase/cmd/kbase/services"
	"github.com/papercomputeco/kbase/pkg/config"
	"github.com/papercomputeco/kbase/pkg/credentials"
)

type ServeCommander struct {
	listen     string
	uploadDir  string
	collection string
	host       string
	port       uint
	persistDir string
	noMCP      bool
	debug      bool

	creds  *credentials.Manager
	logger *slog.Logger
}

const serveLongDesc string = `Run kbase services.

Use subcommands to run individual services or all services together:
  kbase serve          Run the vector database and API server together
  kbase serve db       Run just the vector database server
  kbase serve api      Run just the API server`

const serveShortDesc string = "Run kbase services"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			flags := append(append([]string{}, dbcmder.Flags...), apicmder.Flags...)
			cfg, err := services.LoadConfig(cmd, flags...)
			if err != nil {
				return err
			}
			cmder.creds, err = services.Credentials(cmd)
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
	apicmder.AddFlags(cmd, &cmder.listen, &cmder.uploadDir, &cmder.collection)
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not serve the MCP endpoint")

	cmd.AddCommand(dbcmder.NewDBCmd())
	cmd.AddCommand(apicmder.NewAPICmd())

	return cmd
}

func (c *ServeCommander) run(ctx context.Context, cfg *config.Config) error {
	var closeLog func() error
	var err error
	c.logger, closeLog, err = services.NewLogger(cfg, c.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := dbcmder.NewServerClient(cfg, c.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := db.ListenAndServe(ctx); err != nil {
			errChan <- fmt.Errorf("vector database error: %w", err)
			return
		}
		errChan <- nil
	}()

	// The API connects to the database with retries while it starts.
	go func() {
		if err := apicmder.Serve(ctx, cfg, !c.noMCP, c.logger, services.WithCredentials(c.creds)); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
			return
		}
		errChan <- nil
	}()

	// The first server to stop takes the other one down with it.
	err = <-errChan
	cancel()
	if second := <-errChan; err == nil {
		err = second
	}

	if err == nil {
		c.logger.Info("servers stopped")
	}
	return err
}
