// Package notify reports finished sync runs to operators.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"avsched/internal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Report summarises one sync run.
type Report struct {
	TraceID    string              `json:"traceId"`
	Window     internal.SyncWindow `json:"window"`
	Fetched    int                 `json:"fetched"`
	Kept       int                 `json:"kept"`
	Canonical  int                 `json:"canonical"`
	Pruned     int64               `json:"pruned"`
	Conflicts  int                 `json:"conflicts"`
	ExportPath string              `json:"exportPath,omitempty"`
	FinishedAt time.Time           `json:"finishedAt"`
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, r Report) error
}

// Multi sends to every notifier and joins their errors. One failing channel
// does not stop the others.
type Multi []Notifier

func (m Multi) Name() string {
	names := make([]string, 0, len(m))
	for _, n := range m {
		names = append(names, n.Name())
	}
	return strings.Join(names, ",")
}

func (m Multi) Notify(ctx context.Context, r Report) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close releases every notifier that holds a connection.
func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if c, ok := n.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func Subject(r Report) string {
	return fmt.Sprintf("AV schedule sync %s..%s: %d events", r.Window.From, r.Window.To, r.Canonical)
}

// Summary is the plain-text body of a report.
func Summary(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Window:     %s .. %s\n", r.Window.From, r.Window.To)
	fmt.Fprintf(&b, "Fetched:    %d\n", r.Fetched)
	fmt.Fprintf(&b, "Kept:       %d\n", r.Kept)
	fmt.Fprintf(&b, "Events:     %d\n", r.Canonical)
	fmt.Fprintf(&b, "Pruned:     %d\n", r.Pruned)
	fmt.Fprintf(&b, "Conflicts:  %d\n", r.Conflicts)
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Finished:   %s\n", r.FinishedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Trace:      %s\n", r.TraceID)
	return b.String()
}

// BuildReportMessage renders r as an RFC 5322 message. The xlsx export is
// attached when the report has one.
func BuildReportMessage(from string, to []string, r Report) ([]byte, error) {
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("report from %q: %w", from, err)
	}
	var rcpts []mail.Address
	for _, addr := range to {
		parsed, err := mail.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("report to %q: %w", addr, err)
		}
		rcpts = append(rcpts, *parsed)
	}
	if len(rcpts) == 0 {
		return nil, errors.New("report has no recipients")
	}

	builder := enmime.Builder().
		From(sender.Name, sender.Address).
		ToAddrs(rcpts).
		Subject(Subject(r)).
		Date(reportDate(r)).
		Text([]byte(Summary(r)))

	if r.ExportPath != "" {
		blob, err := os.ReadFile(r.ExportPath)
		if err != nil {
			return nil, fmt.Errorf("attach export: %w", err)
		}
		builder = builder.AddAttachment(blob, xlsxContentType, filepath.Base(r.ExportPath))
	}

	part, err := builder.Build()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func reportDate(r Report) time.Time {
	if r.FinishedAt.IsZero() {
		return time.Now()
	}
	return r.FinishedAt
}
