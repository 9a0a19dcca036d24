package cli

import (
	"github.com/spf13/cobra"

	"questboard/internal/config"
)

type configEntries []configEntry

type configEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (configEntries) Header() []string { return []string{"KEY", "VALUE"} }

func (es configEntries) Rows() [][]string {
	out := make([][]string, 0, len(es))
	for _, e := range es {
		out = append(out, []string{e.Key, e.Value})
	}
	return out
}

func entries(cfg config.Config) configEntries {
	var out configEntries
	for _, k := range config.Keys() {
		v, _ := cfg.Get(k)
		out = append(out, configEntry{Key: k, Value: v})
	}
	return out
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change ~/.questboard/config.json",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective settings (file, environment, flags, defaults)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, entries(app.cfg))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist one setting",
		Long:  "Keys: server, addr, db, redisUrl, pollIntervalMs, player, logLevel, logFile. An empty value clears the key.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := config.Save(cfg); err != nil {
				return writeErr(cmd, err)
			}
			v, _ := cfg.Get(args[0])
			return writeOut(cmd, app, configEntries{{Key: args[0], Value: v}})
		},
	})
	return cmd
}
