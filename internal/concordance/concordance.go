// Package concordance maps line numbers in a woven .tex file back to the
// literate source it was generated from.
package concordance

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/texlog"
)

// ErrMalformed is returned for concordance text that cannot be decoded.
var ErrMalformed = errors.New("malformed concordance")

var (
	sconcordanceRe = regexp.MustCompile(`\\Sconcordance\{([^}]*)\}`)
	offsetRe       = regexp.MustCompile(`^ofs\s+(\d+)$`)
)

// Concordance relates each line of OutputFile to a line of InputFile. The zero
// value is empty and maps nothing.
type Concordance struct {
	InputFile  string
	OutputFile string

	offset int
	// mapping[i] is the input line for output line offset+i+1.
	mapping []int
}

// Empty reports whether c carries no mapping.
func (c Concordance) Empty() bool {
	return len(c.mapping) == 0
}

// RnwLine returns the input line for an output line. Lines outside the mapped
// range are clamped to the nearest mapped line; an empty concordance returns
// texLine unchanged.
func (c Concordance) RnwLine(texLine int) int {
	if c.Empty() {
		return texLine
	}
	idx := texLine - c.offset - 1
	idx = max(idx, 0)
	idx = min(idx, len(c.mapping)-1)
	return c.mapping[idx]
}

// Map rewrites an entry that points into OutputFile so it points at the
// corresponding InputFile line. Other entries are returned unchanged.
func (c Concordance) Map(e texlog.LogEntry) texlog.LogEntry {
	if c.Empty() || e.File != c.OutputFile {
		return e
	}
	e.File = c.InputFile
	e.Line = c.RnwLine(e.Line)
	return e
}

// MapAll applies Map to every entry, preserving order.
func (c Concordance) MapAll(entries texlog.LogEntries) texlog.LogEntries {
	if entries == nil {
		return nil
	}
	out := make(texlog.LogEntries, len(entries))
	for i, e := range entries {
		out[i] = c.Map(e)
	}
	return out
}

// ReadFile loads the concordance written by a weave step, typically
// "<stem>-concordance.tex". A missing file yields an empty concordance. File
// names inside the concordance are resolved against the file's directory.
func ReadFile(path string) (Concordance, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from the compile target
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Concordance{}, nil
		}
		return Concordance{}, fmt.Errorf("read concordance %s: %w", path, err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return Concordance{}, fmt.Errorf("%s: %w", path, err)
	}
	if c.Empty() {
		return c, nil
	}
	dir := filepath.Dir(path)
	c.InputFile = resolve(dir, c.InputFile)
	c.OutputFile = resolve(dir, c.OutputFile)
	return c, nil
}

// Parse decodes the first \Sconcordance{...} block in text. Text without such a
// block yields an empty concordance.
//
// The block has the form "concordance:<out>:<in>:[ofs N:]<start> <n1> <d1> ...":
// output line 1 maps to input line <start>, and each (n, d) pair advances the
// next n output lines by d input lines each. A line ending in "%" continues on
// the next line.
func Parse(text string) (Concordance, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "%\n", "")

	m := sconcordanceRe.FindStringSubmatch(text)
	if m == nil {
		return Concordance{}, nil
	}

	fields := strings.Split(m[1], ":")
	if len(fields) != 4 && len(fields) != 5 {
		return Concordance{}, fmt.Errorf("%w: expected 4 or 5 fields, got %d", ErrMalformed, len(fields))
	}
	if fields[0] != "concordance" {
		return Concordance{}, fmt.Errorf("%w: unexpected tag %q", ErrMalformed, fields[0])
	}

	c := Concordance{
		OutputFile: strings.TrimSpace(fields[1]),
		InputFile:  strings.TrimSpace(fields[2]),
	}
	values := fields[3]
	if len(fields) == 5 {
		om := offsetRe.FindStringSubmatch(strings.TrimSpace(fields[3]))
		if om == nil {
			return Concordance{}, fmt.Errorf("%w: bad offset %q", ErrMalformed, fields[3])
		}
		c.offset, _ = strconv.Atoi(om[1])
		values = fields[4]
	}

	mapping, err := decode(values)
	if err != nil {
		return Concordance{}, err
	}
	c.mapping = mapping
	return c, nil
}

func decode(s string) ([]int, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 || len(parts)%2 == 0 {
		return nil, fmt.Errorf("%w: expected a start line followed by pairs, got %d values", ErrMalformed, len(parts))
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformed, p)
		}
		nums[i] = n
	}

	mapping := []int{nums[0]}
	for i := 1; i < len(nums); i += 2 {
		count, delta := nums[i], nums[i+1]
		if count < 0 {
			return nil, fmt.Errorf("%w: negative run length %d", ErrMalformed, count)
		}
		for range count {
			mapping = append(mapping, mapping[len(mapping)-1]+delta)
		}
	}
	return mapping, nil
}

func resolve(dir, name string) string {
	if name == "" {
		return ""
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(dir, name)
	}
	return filepath.Clean(name)
}
