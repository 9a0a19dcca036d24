package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

type lockStatus struct {
	Locked bool `json:"locked"`
}

func (l lockStatus) Header() []string { return []string{"LOCKED"} }
func (l lockStatus) Rows() [][]string { return [][]string{{strconv.FormatBool(l.Locked)}} }

func newLockCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Freeze or unfreeze the board for every viewer",
		Long:  "While the board is locked notes cannot be dragged, moved or abandoned. Viewing, zoom and filtering keep working.",
	}

	set := func(locked bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, st, err := app.loadBoard(ctx, cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := send(ctx, st, s.SetLock(locked)); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, lockStatus{Locked: locked})
		}
	}
	cmd.AddCommand(&cobra.Command{Use: "on", Short: "Lock the board", Args: cobra.NoArgs, RunE: set(true)})
	cmd.AddCommand(&cobra.Command{Use: "off", Short: "Unlock the board", Args: cobra.NoArgs, RunE: set(false)})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the board is locked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := app.loadBoard(cmd.Context(), cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, lockStatus{Locked: s.State().Locked()})
		},
	})
	return cmd
}
