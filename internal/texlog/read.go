package texlog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrLogNotFound is returned when the requested log file does not exist.
var ErrLogNotFound = errors.New("log file not found")

// readLog loads a log file as UTF-8 text with normalized line endings. TeX
// engines write 8-bit output, so anything that is not valid UTF-8 is decoded as
// ISO-8859-1.
func readLog(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from the compile target
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrLogNotFound, path)
		}
		return "", fmt.Errorf("read log %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		decoded, decErr := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if decErr != nil {
			return "", fmt.Errorf("decode log %s: %w", path, decErr)
		}
		data = decoded
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return strings.ReplaceAll(string(data), "\r", "\n"), nil
}
