// Package dbapp is the bootstrap for the vector database server process.
// It fixes the server's settings and exposes the single application handle
// a host serves, built on first use and shared for the life of the process.
package dbapp

import (
	"net/http"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/kbase/pkg/chromadb"
)

// Settings returns the server configuration: a REST server bound to all
// interfaces on port 8000, persisting under /data.
func Settings() chromadb.Settings {
	return chromadb.Settings{
		APIImpl:          chromadb.APIImplREST,
		ServerHost:       "0.0.0.0",
		ServerHTTPPort:   8000,
		PersistDirectory: "/data",
	}
}

// App returns the application handle. The client is constructed on the
// first call; every call returns the same handle and the same error.
func App() (*fiber.App, error) {
	return shared.app()
}

// Handler returns the application handle adapted to net/http.
func Handler() (http.Handler, error) {
	return shared.handler()
}

var shared = newHandle(Settings(), nil)

// handle memoizes one client and the application built from it.
type handle struct {
	settings chromadb.Settings
	opts     []chromadb.Option

	once        sync.Once
	fiber       *fiber.App
	httpHandler *appHandler
	initErr     error
}

// appHandler wraps the adapted application so every caller receives the
// same comparable value.
type appHandler struct {
	http.Handler
}

func newHandle(s chromadb.Settings, opts []chromadb.Option) *handle {
	return &handle{settings: s, opts: opts}
}

func (h *handle) init() {
	h.once.Do(func() {
		client, err := chromadb.NewClient(h.settings, h.opts...)
		if err != nil {
			h.initErr = err
			return
		}
		app, err := client.App()
		if err != nil {
			h.initErr = err
			return
		}
		h.fiber = app
		h.httpHandler = &appHandler{Handler: adaptor.FiberApp(app)}
	})
}

func (h *handle) app() (*fiber.App, error) {
	h.init()
	return h.fiber, h.initErr
}

func (h *handle) handler() (http.Handler, error) {
	h.init()
	if h.initErr != nil {
		return nil, h.initErr
	}
	return h.httpHandler, nil
}
