package chromadb

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/papercomputeco/kbase/pkg/chromadb/store"
	"github.com/papercomputeco/kbase/pkg/logger"
)

// server exposes an API over the REST routes.
type server struct {
	api    API
	logger *slog.Logger
}

// newApp builds the fiber application serving api.
func newApp(api API, l *slog.Logger) *fiber.App {
	s := &server{api: api, logger: l}

	app := fiber.New(fiber.Config{
		AppName:               "kbasedb",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.RequestLogger(l))

	v2 := app.Group(apiPrefix)
	v2.Get("/heartbeat", s.handleHeartbeat)
	v2.Get("/version", s.handleVersion)

	cols := v2.Group("/tenants/:tenant/databases/:database/collections", s.requireDefaultDatabase)
	cols.Get("/", s.handleListCollections)
	cols.Post("/", s.handleCreateCollection)
	cols.Get("/:collection", s.handleGetCollection)
	cols.Delete("/:collection", s.handleDeleteCollection)
	cols.Post("/:collection/add", s.handleAdd)
	cols.Post("/:collection/upsert", s.handleUpsert)
	cols.Post("/:collection/query", s.handleQuery)
	cols.Post("/:collection/get", s.handleGet)
	cols.Post("/:collection/delete", s.handleDelete)
	cols.Get("/:collection/count", s.handleCount)

	return app
}

// requireDefaultDatabase rejects tenants and databases other than the
// defaults, which are the only ones that exist.
func (s *server) requireDefaultDatabase(c *fiber.Ctx) error {
	if tenant := c.Params("tenant"); tenant != store.DefaultTenant {
		return fmt.Errorf("%w: tenant %s", ErrCollectionNotFound, tenant)
	}
	if database := c.Params("database"); database != store.DefaultDatabase {
		return fmt.Errorf("%w: database %s", ErrCollectionNotFound, database)
	}
	return c.Next()
}

func (s *server) handleHeartbeat(c *fiber.Ctx) error {
	ns, err := s.api.Heartbeat(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(heartbeatResponse{NanosecondHeartbeat: ns})
}

func (s *server) handleVersion(c *fiber.Ctx) error {
	v, err := s.api.Version(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(v)
}

func (s *server) handleListCollections(c *fiber.Ctx) error {
	cols, err := s.api.ListCollections(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(cols)
}

func (s *server) handleCreateCollection(c *fiber.Ctx) error {
	var req CreateCollectionRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	col, err := s.api.CreateCollection(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(col)
}

func (s *server) handleGetCollection(c *fiber.Ctx) error {
	col, err := s.api.GetCollection(c.UserContext(), c.Params("collection"))
	if err != nil {
		return err
	}
	return c.JSON(col)
}

func (s *server) handleDeleteCollection(c *fiber.Ctx) error {
	if err := s.api.DeleteCollection(c.UserContext(), c.Params("collection")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{})
}

func (s *server) handleAdd(c *fiber.Ctx) error {
	var req AddRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if err := s.api.Add(c.UserContext(), c.Params("collection"), &req); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{})
}

func (s *server) handleUpsert(c *fiber.Ctx) error {
	var req AddRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if err := s.api.Upsert(c.UserContext(), c.Params("collection"), &req); err != nil {
		return err
	}
	return c.JSON(fiber.Map{})
}

func (s *server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	resp, err := s.api.Query(c.UserContext(), c.Params("collection"), &req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *server) handleGet(c *fiber.Ctx) error {
	var req GetRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	resp, err := s.api.Get(c.UserContext(), c.Params("collection"), &req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *server) handleDelete(c *fiber.Ctx) error {
	var req DeleteRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if err := s.api.Delete(c.UserContext(), c.Params("collection"), &req); err != nil {
		return err
	}
	return c.JSON(fiber.Map{})
}

func (s *server) handleCount(c *fiber.Ctx) error {
	n, err := s.api.Count(c.UserContext(), c.Params("collection"))
	if err != nil {
		return err
	}
	return c.JSON(n)
}

// decodeBody unmarshals a JSON body. An empty body leaves v untouched.
func decodeBody(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decoding request body: %v", ErrInvalidArgument, err)
	}
	return nil
}

// handleError renders every error as an ErrorResponse, mapping the
// package's sentinel errors onto HTTP status codes.
func (s *server) handleError(c *fiber.Ctx, err error) error {
	status, kind := classify(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(status).JSON(ErrorResponse{Error: kind, Message: err.Error()})
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.Is(err, ErrCollectionNotFound):
		return fiber.StatusNotFound, kindNotFound
	case errors.Is(err, ErrCollectionExists):
		return fiber.StatusConflict, kindUniqueViolation
	case errors.Is(err, ErrDuplicateID):
		return fiber.StatusConflict, kindDuplicateID
	case errors.Is(err, ErrDimensionMismatch):
		return fiber.StatusBadRequest, kindInvalidDim
	case errors.Is(err, ErrInvalidArgument):
		return fiber.StatusBadRequest, kindInvalidArgument
	case errors.As(err, &fe):
		switch {
		case fe.Code == fiber.StatusNotFound:
			return fe.Code, kindNotFound
		case fe.Code < fiber.StatusInternalServerError:
			return fe.Code, kindInvalidArgument
		default:
			return fe.Code, kindInternal
		}
	default:
		return fiber.StatusInternalServerError, kindInternal
	}
}
