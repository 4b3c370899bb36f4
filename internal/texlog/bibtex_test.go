package texlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBlg = `This is BibTeX, Version 0.99d (TeX Live 2023)
The top-level auxiliary file: paper.aux
The style file: plain.bst
Database file #1: refs.bib
I was expecting a ` + "`,' or a `}'" + `---line 14 of file refs.bib
 :   title = {Broken
 :
I'm skipping whatever remains of this entry
Warning--string name "jna" is undefined
--line 20 of file refs.bib
Warning--empty journal in knuth84
(There was 1 error message)
`

func TestParseBibtexLogContent(t *testing.T) {
	entries := ParseBibtexLogContent(sampleBlg, "/d")

	require.Len(t, entries, 2)
	assert.Equal(t, LogEntry{Type: Error, File: "/d/refs.bib", Line: 14, Message: "I was expecting a `,' or a `}'"}, entries[0])
	assert.Equal(t, LogEntry{Type: Warning, File: "/d/refs.bib", Line: 20, Message: `string name "jna" is undefined`}, entries[1])
}

func TestParseBibtexLogContent_MessageFromPreviousLine(t *testing.T) {
	log := "Illegal, another \\bibdata command\n---line 3 of file paper.aux\n"
	entries := ParseBibtexLogContent(log, "/d")
	require.Len(t, entries, 1)
	assert.Equal(t, "Illegal, another \\bibdata command", entries[0].Message)
	assert.Equal(t, "/d/paper.aux", entries[0].File)
}

func TestParseBibtexLog_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.blg")
	require.NoError(t, os.WriteFile(path, []byte(sampleBlg), 0o600))

	entries, err := ParseBibtexLog(path)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, entries.Count(Error))
	assert.Equal(t, 1, entries.Count(Warning))
}

func TestLogEntryFormat(t *testing.T) {
	e := LogEntry{Type: Error, File: "/d/sub/paper.tex", Line: 12, Message: "Undefined control sequence"}

	assert.Equal(t, "sub/paper.tex (line 12): Undefined control sequence", e.Format("/d"))
	assert.Equal(t, "/d/sub/paper.tex (line 12): Undefined control sequence", e.Format("/elsewhere"))
	assert.Equal(t, "/d/sub/paper.tex (line 12): Undefined control sequence", e.Format(""))
	assert.Equal(t, "error", e.Type.String())
}
