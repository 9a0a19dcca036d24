package board

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxSketchBytes bounds attached sketches; they travel inline in every snapshot.
const MaxSketchBytes = 2 << 20

// LoadSketch reads an image file into a data URI suitable for Note.Image.
func LoadSketch(path string) (string, error) {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(b) > MaxSketchBytes {
		return "", fmt.Errorf("%s is larger than %d bytes", filepath.Base(path), MaxSketchBytes)
	}
	mime := http.DetectContentType(b)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", filepath.Base(path), mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}
