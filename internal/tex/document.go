package tex

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// LiterateExtensions are the lower-case extensions of documents that must be
// woven before compiling.
var LiterateExtensions = []string{".rnw", ".snw", ".nw"}

// TargetDocument is the file a compile was requested for.
type TargetDocument struct {
	path string
	dir  string
	stem string
	ext  string
}

// NewTargetDocument makes path absolute and splits it into its parts.
func NewTargetDocument(path string) (TargetDocument, error) {
	if path == "" {
		return TargetDocument{}, errors.New("empty document path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return TargetDocument{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	base := filepath.Base(abs)
	ext := filepath.Ext(base)
	return TargetDocument{
		path: abs,
		dir:  filepath.Dir(abs),
		stem: strings.TrimSuffix(base, ext),
		ext:  ext,
	}, nil
}

func (d TargetDocument) Path() string     { return d.path }
func (d TargetDocument) Dir() string      { return d.dir }
func (d TargetDocument) Stem() string     { return d.stem }
func (d TargetDocument) Filename() string { return filepath.Base(d.path) }

// Ext returns the extension in lower case, including the dot.
func (d TargetDocument) Ext() string { return strings.ToLower(d.ext) }

// HasExt reports whether the document extension equals any of exts, ignoring case.
func (d TargetDocument) HasExt(exts ...string) bool {
	for _, e := range exts {
		if strings.EqualFold(d.ext, e) {
			return true
		}
	}
	return false
}

// IsLiterate reports whether the document needs weaving.
func (d TargetDocument) IsLiterate() bool {
	return d.HasExt(LiterateExtensions...)
}

// AncillaryPath returns the sibling file with the same stem and suffix, which
// is appended verbatim (".aux", "-concordance.tex").
func (d TargetDocument) AncillaryPath(suffix string) string {
	return filepath.Join(d.dir, d.stem+suffix)
}

// TexPath is the file handed to the TeX engine.
func (d TargetDocument) TexPath() string { return d.AncillaryPath(".tex") }

// PDFPath is the compiled artifact.
func (d TargetDocument) PDFPath() string { return d.AncillaryPath(".pdf") }
