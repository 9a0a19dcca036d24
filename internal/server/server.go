// Package server exposes a board store over HTTP.
package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"questboard/internal/boardsync"
	"questboard/internal/model"
)

// maxBodySize bounds request bodies; notes may carry an inline image.
const maxBodySize = 8 << 20

type statusResponse struct {
	Status string `json:"status"`
}

var ok = statusResponse{Status: "ok"}

// New returns an echo instance with every board route registered.
func New(store boardsync.Store, logger log.FieldLogger) *echo.Echo {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(requestLogger(logger))
	Register(e, store, logger)
	return e
}

// Register wires the board routes on e.
func Register(e *echo.Echo, store boardsync.Store, logger log.FieldLogger) {
	e.GET("/api/data", getData(store, logger))
	e.POST("/api/notes", postNote(store, logger))
	e.DELETE("/api/notes/:id", deleteNote(store, logger))
	e.POST("/api/tags", postTag(store, logger))
	e.DELETE("/api/tags/:name", deleteTag(store, logger))
	e.POST("/api/players", postPlayer(store, logger))
	e.POST("/api/lock", postLock(store, logger))
	e.GET("/healthz", healthz(store))
}

func requestLogger(logger log.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			logger.WithFields(log.Fields{
				"method":   req.Method,
				"path":     req.URL.Path,
				"status":   c.Response().Status,
				"duration": time.Since(start).String(),
			}).Debug("request")
			return nil
		}
	}
}

func healthz(store boardsync.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := store.FetchSnapshot(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, err.Error())
		}
		return c.NoContent(http.StatusOK)
	}
}

func getData(store boardsync.Store, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		snap, err := store.FetchSnapshot(c.Request().Context())
		if err != nil {
			return storeError(c, logger, "fetch snapshot", err)
		}
		return c.JSON(http.StatusOK, snap)
	}
}

func postNote(store boardsync.Store, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var n model.Note
		if err := decodeBody(c, &n); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if strings.TrimSpace(n.ID) == "" {
			return c.String(http.StatusBadRequest, "note id is required")
		}
		if err := store.UpsertNote(c.Request().Context(), n); err != nil {
			return storeError(c, logger.WithField("note", n.ID), "upsert note", err)
		}
		return c.JSON(http.StatusOK, ok)
	}
}

func deleteNote(store boardsync.Store, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if err := store.DeleteNote(c.Request().Context(), id); err != nil {
			return storeError(c, logger.WithField("note", id), "delete note", err)
		}
		return c.JSON(http.StatusOK, ok)
	}
}

func postTag(store boardsync.Store, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var t model.Tag
		if err := decodeBody(c, &t); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if strings.TrimSpace(t.Name) == "" {
			return c.String(http.StatusBadRequest, "tag name is required")
		}
		if err := store.CreateTag(c.Request().Context(), t); err != nil {
			return storeError(c, logger.WithField("tag", t.Name), "create tag", err)
		}
		return c.JSON(http.StatusOK, ok)
	}
}

func deleteTag(store boardsync.Store, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.Param("name")
		if err := store.DeleteTag(c.Request().Context(), name); err != nil {
			return storeError(c, logger.WithField("tag", name), "delete tag", err)
		}
		return c.JSON(http.StatusOK, ok)
	}
}

func postPlayer(store boardsync.Store, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p model.Player
		if err := decodeBody(c, &p); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if strings.TrimSpace(p.Name) == "" {
			return c.String(http.StatusBadRequest, "player name is required")
		}
		if err := store.CreatePlayer(c.Request().Context(), p.Name); err != nil {
			return storeError(c, logger.WithField("player", p.Name), "create player", err)
		}
		return c.JSON(http.StatusOK, ok)
	}
}

type lockRequest struct {
	Locked *bool `json:"locked"`
}

func postLock(store boardsync.Store, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req lockRequest
		if err := decodeBody(c, &req); err != nil || req.Locked == nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := store.SetLock(c.Request().Context(), *req.Locked); err != nil {
			return storeError(c, logger.WithField("locked", *req.Locked), "set lock", err)
		}
		return c.JSON(http.StatusOK, ok)
	}
}

func decodeBody(c echo.Context, v any) error {
	body := c.Request().Body
	if body == nil {
		return errors.New("empty body")
	}
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(body, maxBodySize))
	return dec.Decode(v)
}

func storeError(c echo.Context, logger log.FieldLogger, what string, err error) error {
	logger.WithError(err).Error(what + " failed")
	return c.String(http.StatusInternalServerError, err.Error())
}
