// Package ingestcmder provides the ingest command, which adds documents to
// the knowledge base from local files or a watched directory.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/kbase/cmd/kbase/services"
	"github.com/papercomputeco/kbase/pkg/cliui"
	"github.com/papercomputeco/kbase/pkg/config"
	"github.com/papercomputeco/kbase/pkg/credentials"
	"github.com/papercomputeco/kbase/pkg/documents"
	"github.com/papercomputeco/kbase/pkg/rag"
	"github.com/papercomputeco/kbase/pkg/watch"
	"github.com/papercomputeco/kbase/pkg/worker"
)

type ingestCommander struct {
	watchDir   string
	workers    uint
	collection string
	debug      bool

	out    io.Writer
	creds  *credentials.Manager
	logger *slog.Logger
}

var ingestFlags = append([]string{
	config.FlagCollection,
	config.FlagWatchDir,
	config.FlagWatchWorkers,
}, services.BackendFlags...)

const ingestLongDesc string = `Add documents to the knowledge base.

Each file is extracted, chunked, embedded and stored in the configured
vector store. Supported types: PDF, DOCX, XLSX, CSV and TXT.
Files are left in place.

With --watch, kbase keeps running and ingests every supported file that is
created or written in the directory until interrupted.

Examples:
  kbase ingest handbook.pdf policies/*.docx
  kbase ingest --watch ./inbox`

const ingestShortDesc string = "Add documents to the knowledge base"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, err := services.LoadConfig(cmd, ingestFlags...)
			if err != nil {
				return err
			}
			cmder.creds, err = services.Credentials(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 && cfg.Watch.Dir == "" {
				return errors.New("at least one file or --watch directory is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmder.out = cmd.OutOrStdout()
			return cmder.run(ctx, cfg, args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagWatchDir, &cmder.watchDir)
	config.AddUintFlag(cmd, config.Flags, config.FlagWatchWorkers, &cmder.workers)
	services.AddBackendFlags(cmd)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, cfg *config.Config, files []string) error {
	var closeLog func() error
	var err error
	c.logger, closeLog, err = services.NewLogger(cfg, c.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	stack, err := services.Build(ctx, cfg, c.logger, services.WithCredentials(c.creds))
	if err != nil {
		return err
	}
	defer stack.Close()

	if len(files) > 0 {
		if err := IngestFiles(ctx, c.out, stack.Service, files); err != nil {
			return err
		}
	}

	if cfg.Watch.Dir == "" {
		return nil
	}
	return c.watch(ctx, stack.Service, cfg.Watch)
}

// IngestFiles ingests each file in turn, reporting progress to w. Every
// file is attempted; the returned error joins the failures.
func IngestFiles(ctx context.Context, w io.Writer, svc *rag.Service, files []string) error {
	fmt.Fprintf(w, "\n  %s\n\n", cliui.TitleStyle.Render(fmt.Sprintf("Ingesting %d file(s)", len(files))))

	var errs []error
	stored := 0
	for _, path := range files {
		name := filepath.Base(path)

		var result *rag.IngestResult
		err := cliui.Step(w, name, func() error {
			var err error
			result, err = svc.IngestInput(ctx, documents.Input{
				Path:   path,
				Name:   name,
				Source: documents.SourceCLI,
				Keep:   true,
			})
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}

		stored += len(result.Chunks)
		if result.ArchiveKey != "" {
			cliui.KeyValue(w, "archived", result.ArchiveKey)
		}
	}

	fmt.Fprintf(w, "\n  %s %d chunk(s) stored from %d of %d file(s)\n\n",
		cliui.Mark(errors.Join(errs...)), stored, len(files)-len(errs), len(files))

	return errors.Join(errs...)
}

func (c *ingestCommander) watch(ctx context.Context, svc *rag.Service, wc config.WatchConfig) error {
	pool, err := worker.NewPool(&worker.Config{
		Handler:    svc.HandleJob,
		NumWorkers: wc.Workers,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		pool.Close()
		stats := pool.Stats()
		c.logger.Info("watch stopped",
			"processed", stats.Processed,
			"failed", stats.Failed,
			"dropped", stats.Dropped,
		)
	}()

	watcher, err := watch.New(watch.Config{
		Dir:    wc.Dir,
		Queue:  pool,
		Logger: c.logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.TitleStyle.Render("Watching"),
		cliui.StepStyle.Render(watcher.Dir()+" (Ctrl+C to stop)"),
	)

	return watcher.Run(ctx)
}
