// Package cleanup removes the auxiliary files a TeX run leaves next to the
// document.
package cleanup

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/texbuild/internal/logfields"
)

// RemoveFunc deletes a single file. It must treat a missing file as success.
type RemoveFunc func(path string) error

// RemoveIfExists removes path, ignoring a missing file.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// AuxFiles deletes the byproducts of one compile at most once. The zero value
// is inactive; Init arms it.
type AuxFiles struct {
	mu       sync.Mutex
	basePath string
	keepLogs bool
	remove   RemoveFunc
	removed  []string
}

// NewAuxFiles returns an inactive manager using remove for deletions. A nil
// remove uses RemoveIfExists.
func NewAuxFiles(remove RemoveFunc) *AuxFiles {
	return &AuxFiles{remove: remove}
}

// Init arms cleanup for the document at texPath. Only the directory and stem
// are used.
func (a *AuxFiles) Init(texPath string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	stem := strings.TrimSuffix(filepath.Base(texPath), filepath.Ext(texPath))
	a.basePath = filepath.Join(filepath.Dir(texPath), stem)
	a.keepLogs = false
}

// Active reports whether a cleanup is pending.
func (a *AuxFiles) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.basePath != ""
}

// PreserveLog keeps the .log and .blg files when Cleanup runs.
func (a *AuxFiles) PreserveLog() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keepLogs = true
}

// Cleanup deletes .out and .aux, .bbl when a sibling .bib exists, and the logs
// unless PreserveLog was called. Errors are logged. After the first call the
// manager is inactive and further calls do nothing.
func (a *AuxFiles) Cleanup() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.basePath == "" {
		return
	}
	base := a.basePath
	a.basePath = ""

	exts := []string{".out", ".aux"}
	if _, err := os.Stat(base + ".bib"); err == nil {
		exts = append(exts, ".bbl")
	}
	if !a.keepLogs {
		exts = append(exts, ".blg", ".log")
	}

	remove := a.remove
	if remove == nil {
		remove = RemoveIfExists
	}
	for _, ext := range exts {
		path := base + ext
		if err := remove(path); err != nil {
			slog.Warn("Failed to remove auxiliary file", logfields.Path(path), logfields.Error(err))
			continue
		}
		a.removed = append(a.removed, path)
	}
	slog.Debug("Cleaned auxiliary files", logfields.Path(base), logfields.Entries(len(exts)))
}

// Removed returns the paths Cleanup removed, or found already absent.
func (a *AuxFiles) Removed() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.removed...)
}

// RemoveLogs deletes stale .log and .blg files for the document at texPath so a
// later parse cannot report diagnostics from an earlier run. A nil remove uses
// RemoveIfExists.
func RemoveLogs(texPath string, remove RemoveFunc) {
	if remove == nil {
		remove = RemoveIfExists
	}
	base := strings.TrimSuffix(texPath, filepath.Ext(texPath))
	for _, ext := range []string{".log", ".blg"} {
		path := base + ext
		if err := remove(path); err != nil {
			slog.Warn("Failed to remove stale log", logfields.Path(path), logfields.Error(err))
		}
	}
}
