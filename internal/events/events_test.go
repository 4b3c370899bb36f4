package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuild/internal/config"
	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuild/internal/retry"
)

var (
	noRetry   = retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 0)
	fastRetry = retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
)

type fakeConn struct {
	subject    string
	data       []byte
	publishErr error
	// failures is the number of publishes that fail before publishErr is cleared.
	failures int
	attempts int
	flushed  bool
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.attempts++
	f.subject = subject
	f.data = data
	if f.failures > 0 && f.attempts > f.failures {
		return nil
	}
	return f.publishErr
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	f.flushed = true
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestNATSPublisher_PublishPDF(t *testing.T) {
	fc := &fakeConn{}
	p := newNATSPublisher(fc, "texbuild.pdf.published", noRetry)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := p.PublishPDF(t.Context(), PDFPublished{RunID: "r1", Document: "/d/paper.Rnw", PDFPath: "/d/paper.pdf", PublishedAt: at})
	require.NoError(t, err)

	assert.Equal(t, "texbuild.pdf.published", fc.subject)
	assert.True(t, fc.flushed)

	var got PDFPublished
	require.NoError(t, json.Unmarshal(fc.data, &got))
	assert.Equal(t, PDFPublished{Type: TypePDFPublished, RunID: "r1", Document: "/d/paper.Rnw", PDFPath: "/d/paper.pdf", PublishedAt: at}, got)

	p.Close()
	assert.True(t, fc.closed)
}

func TestNATSPublisher_PublishError(t *testing.T) {
	fc := &fakeConn{publishErr: errors.New("nats: connection closed")}
	p := newNATSPublisher(fc, "s", fastRetry)

	err := p.PublishPDF(t.Context(), PDFPublished{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryEvents))
	assert.Equal(t, 3, fc.attempts)
}

func TestNATSPublisher_RetriesTransientFailure(t *testing.T) {
	fc := &fakeConn{publishErr: errors.New("nats: slow consumer"), failures: 1}
	p := newNATSPublisher(fc, "s", fastRetry)

	require.NoError(t, p.PublishPDF(t.Context(), PDFPublished{RunID: "r1"}))
	assert.Equal(t, 2, fc.attempts)
	assert.True(t, fc.flushed)
}

func TestNewNATSPublisher_Disabled(t *testing.T) {
	_, err := NewNATSPublisher("", "s", noRetry)
	require.ErrorIs(t, err, ErrDisabled)
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "s", noRetry)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryEvents))
}
