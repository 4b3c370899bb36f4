package texlog

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	bibErrorRe       = regexp.MustCompile(`^(.*)---line (\d+) of file (.+)$`)
	bibWarningRe     = regexp.MustCompile(`^Warning--(.*)$`)
	bibWarningLineRe = regexp.MustCompile(`^--line (\d+) of file (.+)$`)
)

// ParseBibtexLog parses a BibTeX .blg file.
func ParseBibtexLog(path string) (LogEntries, error) {
	content, err := readLog(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return ParseBibtexLogContent(content, filepath.Dir(abs)), nil
}

// ParseBibtexLogContent parses .blg text already in memory.
func ParseBibtexLogContent(content, baseDir string) LogEntries {
	var entries LogEntries
	lines := strings.Split(content, "\n")
	prev := ""
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")

		if m := bibErrorRe.FindStringSubmatch(line); m != nil {
			msg := strings.TrimSpace(m[1])
			if msg == "" {
				msg = prev
			}
			if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
				entries = append(entries, LogEntry{Type: Error, File: resolveIn(baseDir, m[3]), Line: n, Message: msg})
			}
		} else if m := bibWarningRe.FindStringSubmatch(line); m != nil && i+1 < len(lines) {
			if lm := bibWarningLineRe.FindStringSubmatch(strings.TrimSpace(lines[i+1])); lm != nil {
				if n, err := strconv.Atoi(lm[1]); err == nil && n > 0 {
					entries = append(entries, LogEntry{Type: Warning, File: resolveIn(baseDir, lm[2]), Line: n, Message: strings.TrimSpace(m[1])})
				}
				i++
			}
		}

		if t := strings.TrimSpace(line); t != "" {
			prev = t
		}
	}
	return entries
}

func resolveIn(baseDir, name string) string {
	name = strings.TrimSpace(name)
	if !filepath.IsAbs(name) && baseDir != "" {
		name = filepath.Join(baseDir, name)
	}
	return filepath.Clean(name)
}
