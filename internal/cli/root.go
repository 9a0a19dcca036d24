package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"questboard/internal/board"
	"questboard/internal/boardsync"
	"questboard/internal/client"
	"questboard/internal/config"
	"questboard/internal/format"
	"questboard/internal/model"
	"questboard/internal/store"
	"questboard/internal/tui"
)

type App struct {
	Server     string
	DB         string
	Player     string
	PrettyJSON bool
	Format     string
	LogLevel   string
	LogFile    string

	cfg     config.Config
	logger  *log.Logger
	closers closers
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "questboard",
		Short:        "Shared quest board: terminal viewer, server and scriptable commands",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the board (talks to http://localhost:8000 by default)
  questboard

  # Host a board backed by a local SQLite file
  questboard serve --addr :8000

  # Scriptable commands
  questboard notes add --text "Clear the barrow" --tag Quest
  questboard --format text notes list --tag Quest
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runBoard(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.resolve(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close()
	}

	cmd.PersistentFlags().StringVar(&app.Server, "server", "", "Board server URL (default from config, else "+config.DefaultServer+")")
	cmd.PersistentFlags().StringVar(&app.DB, "db", "", "Use a local SQLite board file instead of a server")
	cmd.PersistentFlags().StringVar(&app.Player, "player", "", "Default assignee for new notes")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("QUESTBOARD_FORMAT", format.JSON), "Output format (json|edn|text)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", "", "Append logs to this file")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newSnapshotCmd(app))
	cmd.AddCommand(newNotesCmd(app))
	cmd.AddCommand(newTagsCmd(app))
	cmd.AddCommand(newPlayersCmd(app))
	cmd.AddCommand(newLockCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newWebTUICmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// resolve merges config file, environment and flags. Flags win.
func (app *App) resolve(cmd *cobra.Command) error {
	cfg, err := config.Resolve()
	if err != nil {
		return writeErr(cmd, err)
	}
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server = app.Server
	}
	if flags.Changed("db") {
		cfg.DB = app.DB
	}
	if flags.Changed("player") {
		cfg.Player = app.Player
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = app.LogLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = app.LogFile
	}
	app.cfg = cfg
	app.Server = cfg.Server
	app.Player = cfg.Player

	switch app.Format {
	case "":
		app.Format = format.JSON
	case format.JSON, format.EDN, format.Text:
	default:
		return writeErr(cmd, fmt.Errorf("unknown format: %s", app.Format))
	}
	logger, logFile, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return writeErr(cmd, err)
	}
	app.logger = logger
	app.onClose(logFile)
	return nil
}

// onClose registers c to be closed when the command finishes. Later
// registrations close first.
func (app *App) onClose(c io.Closer) {
	if c != nil {
		app.closers = append(app.closers, c)
	}
}

func (app *App) close() error {
	cs := app.closers
	app.closers = nil
	if len(cs) == 0 {
		return nil
	}
	return cs.Close()
}

// openStore returns the board the command works on: the local SQLite file
// when --db was given on the command line, otherwise the HTTP server.
func (app *App) openStore(ctx context.Context, cmd *cobra.Command) (boardsync.Store, error) {
	if cmd.Flags().Changed("db") && strings.TrimSpace(app.cfg.DB) != "" {
		db, err := store.OpenSQLite(ctx, app.cfg.DB)
		if err != nil {
			return nil, err
		}
		app.onClose(db)
		return db, nil
	}
	c, err := client.New(app.cfg.Server, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// loadBoard fetches the current snapshot into a fresh State so local rules
// (lock gating, duplicate tags, draft validation) apply to scripted writes.
func (app *App) loadBoard(ctx context.Context, cmd *cobra.Command) (*boardsync.Synchronizer, boardsync.Store, error) {
	st, err := app.openStore(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	s := boardsync.NewSynchronizer(newViewerState(), boardsync.WithLogger(app.logger))
	res := s.Refresh().Do(ctx, st)
	if res.Err != nil {
		return nil, nil, fmt.Errorf("fetch board: %w", res.Err)
	}
	s.Complete(res)
	return s, st, nil
}

// newViewerState is a headless viewer: the surface is the board itself.
func newViewerState() *board.State {
	return board.NewState(model.BoardWidth, model.BoardHeight)
}

// send runs a request synchronously and reports its error.
func send(ctx context.Context, st boardsync.Store, req boardsync.Request) error {
	if res := req.Do(ctx, st); res.Err != nil {
		return fmt.Errorf("%s: %w", req.Op, res.Err)
	}
	return nil
}

func runBoard(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := app.openStore(ctx, cmd)
	if err != nil {
		return writeErr(cmd, err)
	}
	// The board owns the terminal; without a log file, logs are dropped.
	if strings.TrimSpace(app.cfg.LogFile) == "" {
		app.logger.SetOutput(io.Discard)
	}
	return tui.Run(ctx, tui.Options{
		Store:      st,
		Reconciler: boardsync.NewPollReconciler(boardsync.RealClock{}, app.cfg.PollInterval()),
		Logger:     app.logger,
		Player:     app.Player,
	})
}

func newBoardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive board (same as running with no command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd, app)
		},
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	if app.Format == format.Text {
		return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
	}
	return format.Write(cmd.OutOrStdout(), map[string]any{"data": v}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
