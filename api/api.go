package api

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/papercomputeco/kbase/api/mcp"
	"github.com/papercomputeco/kbase/pkg/logger"
	"github.com/papercomputeco/kbase/pkg/rag"
)

// multipartOverhead is headroom above MaxFileSize for multipart framing,
// so oversized files reach the handler's own size check.
const multipartOverhead = 1 << 20

// Server is the API server for the knowledge base.
type Server struct {
	config Config
	rag    *rag.Service
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server over svc.
func NewServer(config Config, svc *rag.Service, l *slog.Logger) (*Server, error) {
	config.setDefaults()
	if svc == nil {
		return nil, errors.New("rag service is required")
	}
	if l == nil {
		l = logger.Nop()
	}

	if err := os.MkdirAll(config.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	s := &Server{
		config: config,
		rag:    svc,
		logger: l,
	}

	app := fiber.New(fiber.Config{
		AppName:               "kbase",
		DisableStartupMessage: true,
		BodyLimit:             config.MaxFileSize + multipartOverhead,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New())
	app.Use(requestid.New())
	app.Use(logger.RequestLogger(l))

	app.Get("/", s.handleIndex)

	apiGroup := app.Group("/api")
	apiGroup.Get("/health", s.handleHealth)
	apiGroup.Post("/chat", s.handleChat)

	docs := apiGroup.Group("/documents")
	docs.Post("/upload", s.handleUpload)
	docs.Get("/", s.handleListDocuments)
	docs.Get("/search", s.handleSearch)
	docs.Delete("/:id", s.handleDeleteDocument)

	admin := apiGroup.Group("/admin")
	admin.Get("/stats", s.handleStats)
	admin.Post("/test-query", s.handleTestQuery)

	if config.EnableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Searcher: svc,
			Logger:   l,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	s.app = app
	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"upload_dir", s.config.UploadDir,
		"mcp", s.config.EnableMCP,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
