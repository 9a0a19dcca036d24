package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"questboard/internal/board"
	"questboard/internal/format"
	"questboard/internal/model"
)

func newNotesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"note"},
		Short:   "List, post, move and abandon notes",
	}
	cmd.AddCommand(newNotesListCmd(app))
	cmd.AddCommand(newNotesAddCmd(app))
	cmd.AddCommand(newNotesMoveCmd(app))
	cmd.AddCommand(newNotesRmCmd(app))
	return cmd
}

func newNotesListCmd(app *App) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, optionally only those with one tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := app.loadBoard(cmd.Context(), cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			st := s.State()
			st.SetFilter(tag)
			return writeOut(cmd, app, format.Notes(st.StackedNotes()))
		},
	}
	cmd.Flags().StringVar(&tag, "tag", model.FilterAll, "Only notes with this tag")
	return cmd
}

func newNotesAddCmd(app *App) *cobra.Command {
	var (
		text     string
		tag      string
		assignee string
		image    string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Post a new note near the middle of the board",
		Example: strings.TrimSpace(`
questboard notes add --text "Retrieve the Horn of Jurgen Windcaller" --tag Quest --assignee Dragonborn
questboard notes add --text "Map of Blackreach" --tag Lore --image ./blackreach.png
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, st, err := app.loadBoard(ctx, cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			tag = strings.TrimSpace(tag)
			if _, found := s.State().Snapshot().FindTag(tag); tag != "" && !found {
				return writeErr(cmd, errNotFound("tag", tag))
			}
			if strings.TrimSpace(assignee) == "" {
				assignee = app.Player
			}
			d := board.NoteDraft{Text: text, Tag: tag, Assignee: assignee}
			if strings.TrimSpace(image) != "" {
				uri, err := board.LoadSketch(image)
				if err != nil {
					return writeErr(cmd, err)
				}
				d.Image = &uri
			}
			n, req, ok := s.CreateNote(d)
			if !ok {
				return writeErr(cmd, errors.New("a note needs both --text and --tag"))
			}
			if err := send(ctx, st, req); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Notes{n})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "Note text (required)")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag name (required)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee (default: --player, else Anonymous)")
	cmd.Flags().StringVar(&image, "image", "", "Attach an image file as the note's sketch")
	return cmd
}

func newNotesMoveCmd(app *App) *cobra.Command {
	var x, y float64
	cmd := &cobra.Command{
		Use:   "move <note-id>",
		Short: "Place a note at a board position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, st, err := app.loadBoard(ctx, cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			n, ok := s.State().Registry.Get(id)
			if !ok {
				return writeErr(cmd, errNotFound("note", id))
			}
			if !cmd.Flags().Changed("x") {
				x = n.X
			}
			if !cmd.Flags().Changed("y") {
				y = n.Y
			}
			req, err := s.MoveNote(id, x, y)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := send(ctx, st, req); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Notes{req.Note})
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "Board x of the note's top-left corner")
	cmd.Flags().Float64Var(&y, "y", 0, "Board y of the note's top-left corner")
	return cmd
}

type deleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (r deleteResult) Header() []string { return []string{"ID", "DELETED"} }
func (r deleteResult) Rows() [][]string {
	d := "no"
	if r.Deleted {
		d = "yes"
	}
	return [][]string{{r.ID, d}}
}

func newNotesRmCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <note-id>",
		Aliases: []string{"abandon"},
		Short:   "Abandon a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, st, err := app.loadBoard(ctx, cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			c, err := s.State().RequestConfirm(board.ConfirmDeleteNote, id)
			if err != nil {
				if !errors.Is(err, board.ErrBoardLocked) {
					err = errNotFound("note", id)
				}
				return writeErr(cmd, err)
			}
			req, ok, err := s.Confirm(confirm(cmd, yes, c.Prompt))
			if err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeOut(cmd, app, deleteResult{ID: id})
			}
			if err := send(ctx, st, req); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, deleteResult{ID: id, Deleted: true})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
