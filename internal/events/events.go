// Package events publishes compile notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/retry"
)

// ErrDisabled is returned when no NATS URL is configured.
var ErrDisabled = errors.New("event publishing is disabled")

// TypePDFPublished identifies PDFPublished events on the wire.
const TypePDFPublished = "pdf.published"

// PDFPublished announces a compiled PDF chosen for publication.
type PDFPublished struct {
	Type        string    `json:"type"`
	RunID       string    `json:"run_id"`
	Document    string    `json:"document"`
	PDFPath     string    `json:"pdf_path"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher delivers PDFPublished events.
type Publisher interface {
	PublishPDF(ctx context.Context, event PDFPublished) error
}

// conn is the subset of *nats.Conn used here.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes events on a core NATS subject.
type NATSPublisher struct {
	conn    conn
	subject string
	policy  retry.Policy
}

// NewNATSPublisher connects to url. The connection is held until Close. Failed
// publishes are retried according to policy.
func NewNATSPublisher(url, subject string, policy retry.Policy) (*NATSPublisher, error) {
	if url == "" {
		return nil, ErrDisabled
	}
	nc, err := nats.Connect(url,
		nats.Name("texbuild"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryEvents, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS publisher connected", "url", url, "subject", subject)
	return newNATSPublisher(nc, subject, policy), nil
}

func newNATSPublisher(c conn, subject string, policy retry.Policy) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subject, policy: policy}
}

// PublishPDF implements Publisher. It waits for the server to acknowledge the
// flush so the event is not lost when the process exits right after.
func (p *NATSPublisher) PublishPDF(ctx context.Context, event PDFPublished) error {
	event.Type = TypePDFPublished
	if event.PublishedAt.IsZero() {
		event.PublishedAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.policy.Do(ctx, "publish "+p.subject, func() error {
		return p.publish(ctx, data)
	})
	if err != nil {
		return err
	}

	slog.Debug("Published PDF event", logfields.RunID(event.RunID), logfields.Path(event.PDFPath))
	return nil
}

func (p *NATSPublisher) publish(ctx context.Context, data []byte) error {
	if err := p.conn.Publish(p.subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryEvents, "failed to publish event").
			WithContext("subject", p.subject).
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryEvents, "failed to flush event").
			WithContext("subject", p.subject).
			Build()
	}
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
