package compile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/events"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/process"
	"git.home.luguber.info/inful/texbuild/internal/tex"
)

// Action is what happens with the PDF after a successful compile.
type Action string

const (
	ActionNone    Action = ""
	ActionView    Action = "view"
	ActionPublish Action = "publish"
)

// ParseAction maps a completion token to an Action. Unrecognized tokens mean no
// action.
func ParseAction(token string) Action {
	switch Action(token) {
	case ActionView, ActionPublish:
		return Action(token)
	default:
		return ActionNone
	}
}

// Viewer opens a PDF for the user.
type Viewer interface {
	View(ctx context.Context, pdfPath string) error
}

// CommandViewer runs a configured opener such as xdg-open with the PDF path as
// its last argument.
type CommandViewer struct {
	runner  process.Runner
	command []string
}

// NewCommandViewer splits command on whitespace; the first field is the program.
func NewCommandViewer(runner process.Runner, command string) *CommandViewer {
	return &CommandViewer{runner: runner, command: strings.Fields(command)}
}

// View implements Viewer.
func (v *CommandViewer) View(ctx context.Context, pdfPath string) error {
	if len(v.command) == 0 {
		return process.ErrEmptyCommand
	}
	args := append(append([]string(nil), v.command[1:]...), pdfPath)
	res, err := v.runner.Run(ctx, process.Command{Program: v.command[0], Args: args})
	if err != nil {
		return err
	}
	if !res.Succeeded() {
		return fmt.Errorf("viewer %s exited with status %d: %s", v.command[0], res.ExitStatus, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// completionFor binds action to the document. The returned function is nil for
// ActionNone. Failures are logged; a post action never changes the outcome of
// a compile.
func completionFor(ctx context.Context, action Action, doc tex.TargetDocument, runID string, viewer Viewer, publisher events.Publisher) func() {
	switch action {
	case ActionView:
		return func() {
			if viewer == nil {
				slog.Warn("View requested but no viewer is configured", logfields.RunID(runID))
				return
			}
			if err := viewer.View(ctx, doc.PDFPath()); err != nil {
				slog.Warn("Failed to open PDF", logfields.RunID(runID), logfields.Path(doc.PDFPath()), logfields.Error(err))
			}
		}
	case ActionPublish:
		return func() {
			if publisher == nil {
				slog.Warn("Publish requested but events.nats_url is not configured", logfields.RunID(runID))
				return
			}
			err := publisher.PublishPDF(ctx, events.PDFPublished{
				RunID:    runID,
				Document: doc.Path(),
				PDFPath:  doc.PDFPath(),
			})
			if err != nil {
				slog.Warn("Failed to publish PDF event", logfields.RunID(runID), logfields.Error(err))
			}
		}
	default:
		return nil
	}
}
