// Package apicmder provides the kbase API server cobra command.
package apicmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/kbase/api"
	"github.com/papercomputeco/kbase/cmd/kbase/services"
	"github.com/papercomputeco/kbase/pkg/config"
	"github.com/papercomputeco/kbase/pkg/credentials"
)

type apiCommander struct {
	listen     string
	uploadDir  string
	collection string
	noMCP      bool
	debug      bool

	creds  *credentials.Manager
	logger *slog.Logger
}

// Flags bound by the api command, shared with "kbase serve".
var Flags = append([]string{
	config.FlagListen,
	config.FlagUploadDir,
	config.FlagCollection,
}, services.BackendFlags...)

const apiLongDesc string = `Run the kbase API server.

The server accepts document uploads, answers searches and grounded chat
requests, and exposes the search_documents MCP tool at /mcp.`

const apiShortDesc string = "Run the kbase API server"

func NewAPICmd() *cobra.Command {
	cmder := &apiCommander{}

	cmd := &cobra.Command{
		Use:   "api",
		Short: apiShortDesc,
		Long:  apiLongDesc,
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
			cmder.creds, err = services.Credentials(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg)
		},
	}

	AddFlags(cmd, &cmder.listen, &cmder.uploadDir, &cmder.collection)
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not serve the MCP endpoint")

	return cmd
}

// AddFlags registers the API server flags on cmd.
func AddFlags(cmd *cobra.Command, listen, uploadDir, collection *string) {
	config.AddStringFlag(cmd, config.Flags, config.FlagListen, listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagUploadDir, uploadDir)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, collection)
	services.AddBackendFlags(cmd)
}

func (c *apiCommander) run(ctx context.Context, cfg *config.Config) error {
	var closeLog func() error
	var err error
	c.logger, closeLog, err = services.NewLogger(cfg, c.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	return Serve(ctx, cfg, !c.noMCP, c.logger, services.WithCredentials(c.creds))
}

// Serve builds the RAG stack from cfg and runs the API server until ctx is
// done or the server fails.
func Serve(ctx context.Context, cfg *config.Config, enableMCP bool, l *slog.Logger, opts ...services.Option) error {
	stack, err := services.Build(ctx, cfg, l, opts...)
	if err != nil {
		return err
	}
	defer stack.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr:  cfg.Server.Listen,
		UploadDir:   cfg.Server.UploadDir,
		MaxFileSize: int(cfg.Server.MaxFileSize), //nolint:gosec // bounded by config
		EnableMCP:   enableMCP,
	}, stack.Service, l)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		l.Info("shutting down API server")
		return server.Shutdown()
	}
}
