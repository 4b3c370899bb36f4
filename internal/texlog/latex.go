package texlog

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxPrintLine is the column at which TeX engines hard-wrap log output.
const maxPrintLine = 79

// maxContextLines bounds the search for the "l.<n>" line that follows an error.
const maxContextLines = 12

var (
	fileLineErrorRe = regexp.MustCompile(`^(.+?):(\d+): (.*)$`)
	bangErrorRe     = regexp.MustCompile(`^! (.*)$`)
	lineNumberRe    = regexp.MustCompile(`^l\.(\d+)`)
	warningRe       = regexp.MustCompile(`^(?:LaTeX|Package|Class) (?:(\S+) )?Warning: (.*)$`)
	inputLineRe     = regexp.MustCompile(`\s*on input line (\d+)\.?`)
	boxRe           = regexp.MustCompile(`^((?:Overfull|Underfull) \\[hv]box .*?) (?:in paragraph |in alignment )?at lines? (\d+)(?:--\d+)?\s*$`)
	fileTokenRe     = regexp.MustCompile(`^(?:\.{1,2}/|/|[A-Za-z]:[\\/])?[^\s(){}\[\]"<>]*\.[A-Za-z][A-Za-z0-9]*$`)
)

// ParseLatexLog parses the primary engine log at path. File names in the log are
// resolved against the log's directory; diagnostics that cannot be attributed to
// an open file are attributed to the main .tex file with the log's stem.
func ParseLatexLog(path string) (LogEntries, error) {
	content, err := readLog(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	main := strings.TrimSuffix(abs, filepath.Ext(abs)) + ".tex"
	return ParseLatexLogContent(content, filepath.Dir(abs), main), nil
}

// ParseLatexLogContent parses log text already in memory.
func ParseLatexLogContent(content, baseDir, mainFile string) LogEntries {
	p := &latexParser{baseDir: baseDir, mainFile: mainFile}
	lines := unwrapLines(strings.Split(content, "\n"))
	for i := 0; i < len(lines); i++ {
		i = p.parseLine(lines, i)
	}
	return p.entries
}

type latexParser struct {
	baseDir  string
	mainFile string
	// stack holds the files opened with "(" in the log; "" marks a parenthesis
	// that did not open a file.
	stack   []string
	entries LogEntries
}

// parseLine handles lines[i] and returns the index of the last line consumed.
func (p *latexParser) parseLine(lines []string, i int) int {
	line := lines[i]

	if m := fileLineErrorRe.FindStringSubmatch(line); m != nil && fileTokenRe.MatchString(m[1]) {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			p.add(Error, p.resolve(m[1]), n, strings.TrimSpace(m[3]))
			if _, last := findLineNumber(lines, i+1); last > i {
				return last
			}
			return i
		}
	}

	if m := bangErrorRe.FindStringSubmatch(line); m != nil {
		n, last := findLineNumber(lines, i+1)
		if n > 0 {
			p.add(Error, p.current(), n, strings.TrimSpace(m[1]))
			return last
		}
		return i
	}

	if m := warningRe.FindStringSubmatch(line); m != nil {
		return p.parseWarning(lines, i, m[1], m[2])
	}

	if m := boxRe.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			p.add(Box, p.current(), n, m[1])
		}
		return skipBoxContent(lines, i)
	}

	p.trackFiles(line)
	return i
}

func (p *latexParser) parseWarning(lines []string, i int, name, msg string) int {
	last := i
	if name != "" {
		prefix := "(" + name + ")"
		for j := i + 1; j < len(lines) && strings.HasPrefix(lines[j], prefix); j++ {
			msg += " " + strings.TrimSpace(strings.TrimPrefix(lines[j], prefix))
			last = j
		}
	}

	loc := inputLineRe.FindStringSubmatchIndex(msg)
	if loc == nil {
		return last
	}
	n, err := strconv.Atoi(msg[loc[2]:loc[3]])
	if err != nil || n <= 0 {
		return last
	}
	msg = strings.TrimSpace(msg[:loc[0]] + msg[loc[1]:])
	p.add(Warning, p.current(), n, msg)
	return last
}

// trackFiles maintains the open-file stack from the parentheses on line.
func (p *latexParser) trackFiles(line string) {
	for k := 0; k < len(line); k++ {
		switch line[k] {
		case '(':
			end := k + 1
			for end < len(line) && !strings.ContainsRune(" \t()", rune(line[end])) {
				end++
			}
			token := line[k+1 : end]
			if fileTokenRe.MatchString(token) {
				p.stack = append(p.stack, p.resolve(token))
			} else {
				p.stack = append(p.stack, "")
			}
			k = end - 1
		case ')':
			if len(p.stack) > 0 {
				p.stack = p.stack[:len(p.stack)-1]
			}
		}
	}
}

func (p *latexParser) current() string {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i] != "" {
			return p.stack[i]
		}
	}
	return p.mainFile
}

func (p *latexParser) resolve(name string) string {
	if !filepath.IsAbs(name) && p.baseDir != "" {
		name = filepath.Join(p.baseDir, name)
	}
	return filepath.Clean(name)
}

func (p *latexParser) add(t EntryType, file string, line int, msg string) {
	p.entries = append(p.entries, LogEntry{Type: t, File: file, Line: line, Message: msg})
}

// findLineNumber looks for the "l.<n>" context line following an error. It
// returns the line number and the index of the context continuation line.
func findLineNumber(lines []string, start int) (int, int) {
	for j := start; j < len(lines) && j < start+maxContextLines; j++ {
		if j > start && (bangErrorRe.MatchString(lines[j]) || fileLineErrorRe.MatchString(lines[j])) {
			break
		}
		if m := lineNumberRe.FindStringSubmatch(lines[j]); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, start - 1
			}
			return n, min(j+1, len(lines)-1)
		}
	}
	return 0, start - 1
}

// skipBoxContent consumes the typeset material TeX prints after a box warning,
// which ends at the next blank line.
func skipBoxContent(lines []string, i int) int {
	last := i
	for j := i + 1; j < len(lines) && j <= i+maxContextLines; j++ {
		if strings.TrimSpace(lines[j]) == "" {
			break
		}
		last = j
	}
	return last
}

// unwrapLines joins lines TeX split at maxPrintLine columns.
func unwrapLines(raw []string) []string {
	out := make([]string, 0, len(raw))
	var cur strings.Builder
	for _, l := range raw {
		cur.WriteString(l)
		if len(l) == maxPrintLine || utf8.RuneCountInString(l) == maxPrintLine {
			continue
		}
		out = append(out, cur.String())
		cur.Reset()
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
