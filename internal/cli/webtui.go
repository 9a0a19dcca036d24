package cli

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"questboard/internal/webtui"
)

func newWebTUICmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "webtui",
		Short: "Run the board viewer in your browser (PTY + WebSocket)",
		Long: strings.TrimSpace(`
Serve the terminal board through a server-side PTY and a browser terminal emulator.

Each browser tab starts its own board subprocess pointed at --server. There is no
authentication; bind to localhost unless the network is trusted.
`),
		Example: strings.TrimSpace(`
questboard webtui --addr 127.0.0.1:3334
questboard --server http://tavern:8000 webtui --addr :3334
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := webtui.NewServer(webtui.ServerConfig{
				Addr:   strings.TrimSpace(addr),
				Server: app.cfg.Server,
				Player: app.Player,
				Logger: app.logger,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			listenAddr := srv.Addr()
			_ = writeOut(cmd, app, map[string]any{
				"addr":      listenAddr,
				"server":    app.cfg.Server,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "questboard webtui running at http://%s (board=%s)\n", listenAddr, app.cfg.Server)
			return http.ListenAndServe(listenAddr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3334", "Bind address (host:port or :port)")
	return cmd
}
