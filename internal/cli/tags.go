package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"questboard/internal/board"
	"questboard/internal/format"
	"questboard/internal/model"
)

func newTagsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		Aliases: []string{"tag"},
		Short:   "Manage note tags",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tags and their colours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := app.loadBoard(cmd.Context(), cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Tags(s.State().Tags()))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag with a random colour",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, st, err := app.loadBoard(ctx, cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			name := strings.TrimSpace(args[0])
			if name == "" {
				return writeErr(cmd, errors.New("tag name is empty"))
			}
			t, req, ok := s.AddTag(name)
			if !ok {
				existing, _ := s.State().Snapshot().FindTag(name)
				return writeOut(cmd, app, format.Tags{existing})
			}
			if err := send(ctx, st, req); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Tags{t})
		},
	})

	var yes bool
	rm := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a tag; its notes keep the name and fall back to the default colour",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, st, err := app.loadBoard(ctx, cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			name := strings.TrimSpace(args[0])
			if _, ok := s.State().Snapshot().FindTag(name); !ok {
				return writeErr(cmd, errNotFound("tag", name))
			}
			c, err := s.State().RequestConfirm(board.ConfirmDeleteTag, name)
			if err != nil {
				return writeErr(cmd, err)
			}
			req, ok, err := s.Confirm(confirm(cmd, yes, c.Prompt))
			if err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeOut(cmd, app, deleteResult{ID: name})
			}
			if err := send(ctx, st, req); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, deleteResult{ID: name, Deleted: true})
		},
	}
	rm.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(rm)

	return cmd
}

func newPlayersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "players",
		Aliases: []string{"player"},
		Short:   "Manage assignee suggestions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := app.loadBoard(cmd.Context(), cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Players(s.State().Players()))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a player to the assignee suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, st, err := app.loadBoard(ctx, cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			req, ok := s.AddPlayer(args[0])
			if !ok {
				return writeErr(cmd, errors.New("player name is empty"))
			}
			if err := send(ctx, st, req); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Players{model.Player{Name: req.Name}})
		},
	})

	return cmd
}
