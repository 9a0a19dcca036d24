package cli

import (
	"context"
	"errors"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/spf13/cobra"

	"questboard/internal/boardsync"
	"questboard/internal/format"
	"questboard/internal/model"
)

func newSnapshotCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the whole board: notes, tags, players and the lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := app.openStore(ctx, cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			snap, err := st.FetchSnapshot(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Summary{Snapshot: snap})
		},
	}
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the board and print a snapshot whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			st, err := app.openStore(ctx, cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			err = watch(ctx, cmd, app, st, boardsync.NewPollReconciler(boardsync.RealClock{}, app.cfg.PollInterval()))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// watch runs a headless viewer and writes each distinct snapshot.
func watch(ctx context.Context, cmd *cobra.Command, app *App, st boardsync.Store, rec boardsync.Reconciler) error {
	var last *model.Snapshot
	var writeErrOnce error
	observe := func(res boardsync.Result, s *boardsync.Synchronizer) {
		if res.Err != nil || res.Request.Op != boardsync.OpFetch {
			return
		}
		snap := s.State().Snapshot()
		if last != nil && reflect.DeepEqual(*last, snap) {
			return
		}
		last = &snap
		if err := writeOut(cmd, app, format.Summary{Snapshot: snap}); err != nil && writeErrOnce == nil {
			writeErrOnce = err
		}
	}
	s := boardsync.NewSynchronizer(newViewerState(), boardsync.WithLogger(app.logger))
	r := boardsync.NewRunner(s, st, rec, boardsync.WithObserver(observe), boardsync.WithRunnerLogger(app.logger))
	err := r.Run(ctx)
	if writeErrOnce != nil {
		return writeErrOnce
	}
	return err
}
