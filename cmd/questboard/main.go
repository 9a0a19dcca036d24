package main

import (
	"os"
	"strings"

	"questboard/internal/cli"
)

func isBoardURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// rewriteBoardURLArgs turns `questboard <url>` into `questboard --server <url> board`.
// Persistent flags may come first, so the first positional token is what counts.
func rewriteBoardURLArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}
	valueFlags := map[string]bool{
		"--server":    true,
		"--db":        true,
		"--player":    true,
		"--format":    true,
		"--log-level": true,
		"--log-file":  true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if !isBoardURL(a) || i+1 != len(argv) {
			return argv
		}
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "--server", a, "board")
		return out
	}
	return argv
}

func main() {
	os.Args = rewriteBoardURLArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
