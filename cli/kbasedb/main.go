// Command kbasedb hosts the vector database server with the fixed dbapp
// settings: REST on 0.0.0.0:8000, persisting under /data.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/papercomputeco/kbase/dbapp"
	"github.com/papercomputeco/kbase/pkg/logger"
)

func main() {
	l := logger.New(logger.WithJSON(true))

	app, err := dbapp.App()
	if err != nil {
		l.Error("vector database failed to start", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := dbapp.Settings().Addr()
	errChan := make(chan error, 1)
	go func() {
		l.Info("starting vector database server", "listen", addr)
		errChan <- app.Listen(addr)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			l.Error("vector database server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		l.Info("shutting down vector database server")
		if err := app.Shutdown(); err != nil {
			l.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
