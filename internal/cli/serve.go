package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"questboard/internal/boardsync"
	"questboard/internal/config"
	"questboard/internal/server"
	"questboard/internal/store"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		addr     string
		redisURL string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host a board over HTTP, backed by SQLite",
		Example: strings.TrimSpace(`
questboard serve --addr :8000
questboard serve --db ./tavern.sqlite --redis-url redis://localhost:6379/0
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("redis-url") {
				cfg.RedisURL = redisURL
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, closer, err := newServeHandler(ctx, cfg, app.logger)
			if err != nil {
				return writeErr(cmd, err)
			}
			app.onClose(closer)

			errCh := make(chan error, 1)
			go func() { errCh <- e.Start(cfg.Addr) }()
			app.logger.WithField("addr", cfg.Addr).WithField("db", dbPath(cfg)).Info("board server listening")
			fmt.Fprintf(cmd.ErrOrStderr(), "questboard serving on %s\n", cfg.Addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return writeErr(cmd, err)
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "Listen address")
	cmd.Flags().StringVar(&redisURL, "redis-url", "", "Cache snapshots in redis (redis://host:port/db)")
	return cmd
}

func dbPath(cfg config.Config) string {
	if p := strings.TrimSpace(cfg.DB); p != "" {
		return p
	}
	return config.DefaultDBPath()
}

type closers []io.Closer

func (cs closers) Close() error {
	var errs []error
	for i := len(cs) - 1; i >= 0; i-- {
		errs = append(errs, cs[i].Close())
	}
	return errors.Join(errs...)
}

// newServeHandler opens the database, adds the redis cache when configured
// and returns the HTTP handler plus everything that needs closing.
func newServeHandler(ctx context.Context, cfg config.Config, logger log.FieldLogger) (*echo.Echo, io.Closer, error) {
	db, err := store.OpenSQLite(ctx, dbPath(cfg))
	if err != nil {
		return nil, nil, err
	}
	cs := closers{db}
	var backend boardsync.Store = db
	if u := strings.TrimSpace(cfg.RedisURL); u != "" {
		opt, err := redis.ParseURL(u)
		if err != nil {
			_ = cs.Close()
			return nil, nil, fmt.Errorf("redis url: %w", err)
		}
		rc := redis.NewClient(opt)
		cs = append(cs, rc)
		backend = store.NewCache(db, rc, config.DefaultCacheTTL, logger)
	}
	return server.New(backend, logger), cs, nil
}
