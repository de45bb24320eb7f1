// Package export renders daily digests of the timeline. Output is a
// pure function of the stored rows for the day: re-rendering the same
// data produces byte-identical files, and re-exporting a day/format
// pair overwrites the previous file and refreshes its record in place.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ajakab/perch/internal/storage"
)

var (
	// ErrInvalidDate is returned when the date key does not parse as YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidFormat is returned for output formats other than md or html.
	ErrInvalidFormat = errors.New("invalid format")
)

// EventSource provides the day's rows and records the finished export.
type EventSource interface {
	DayEvents(start, end int64) ([]storage.EventDetail, error)
	UpsertDailyExport(e storage.DailyExport) error
}

// Renderer writes daily digest files under a single export directory.
type Renderer struct {
	store EventSource
	dir   string
	loc   *time.Location
	now   func() time.Time
}

// New creates a Renderer writing into dir, interpreting date keys in
// loc. A nil loc means the system local timezone.
func New(store EventSource, dir string, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{store: store, dir: dir, loc: loc, now: time.Now}
}

// GenerateDaily renders the digest for one calendar day and returns the
// output path. Format is "md" or "html". The day runs from local
// midnight through 23:59:59.999 inclusive.
func (r *Renderer) GenerateDaily(dateKey, format string) (string, error) {
	day, err := time.ParseInLocation("2006-01-02", dateKey, r.loc)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, dateKey)
	}
	if format != "md" && format != "html" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	start := day.UnixMilli()
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999_000_000, r.loc).UnixMilli()
	details, err := r.store.DayEvents(start, end)
	if err != nil {
		return "", fmt.Errorf("loading events for %s: %w", dateKey, err)
	}

	markdown := renderMarkdown(dateKey, details, r.loc)
	content := markdown
	if format == "html" {
		content, err = renderHTML(dateKey, markdown)
		if err != nil {
			return "", fmt.Errorf("rendering html: %w", err)
		}
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(r.dir, dateKey+"."+format)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}

	err = r.store.UpsertDailyExport(storage.DailyExport{
		ID:           storage.NewID(),
		DateKey:      dateKey,
		OutputFormat: format,
		OutputPath:   path,
		CreatedAt:    r.now().UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func eventIcon(eventType string) string {
	switch eventType {
	case storage.EventImage:
		return "🖼️"
	case storage.EventText:
		return "📝"
	case storage.EventThought:
		return "💭"
	default:
		return "📄"
	}
}

func attachmentIcon(kind string) string {
	if kind == "image" {
		return "🖼️"
	}
	return "📎"
}

// renderMarkdown assembles the digest body. Everything here must stay
// deterministic for a given row set.
func renderMarkdown(dateKey string, details []storage.EventDetail, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Daily Record - %s\n\n", dateKey)
	fmt.Fprintf(&b, "%d records\n\n---\n\n", len(details))

	for _, d := range details {
		at := time.UnixMilli(d.Event.CreatedAt).In(loc)
		title := d.Event.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "## %s %s %s\n\n", at.Format("15:04"), eventIcon(d.Event.Type), title)

		if d.Event.Note != "" {
			fmt.Fprintf(&b, "%s\n\n", d.Event.Note)
		}
		if d.Event.TextContent != "" {
			fmt.Fprintf(&b, "```\n%s\n```\n\n", d.Event.TextContent)
		}
		if len(d.Attachments) > 0 {
			b.WriteString("**Attachments:**\n")
			for _, a := range d.Attachments {
				name := a.FileName
				if name == "" {
					name = "Unknown"
				}
				fmt.Fprintf(&b, "- %s %s\n", attachmentIcon(a.Kind), name)
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

const htmlStyle = `body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; color: #333; line-height: 1.6; }
h1 { border-bottom: 2px solid #eee; padding-bottom: .3rem; }
h2 { margin-top: 1.5rem; }
pre { background: #f6f6f6; padding: .8rem; border-radius: 6px; overflow-x: auto; }
hr { border: none; border-top: 1px solid #eee; margin: 1.5rem 0; }
ul { padding-left: 1.2rem; }`

// renderHTML converts the markdown body structurally and wraps it in a
// fixed styled document.
func renderHTML(dateKey, markdown string) (string, error) {
	var body bytes.Buffer
	if err := htmlRenderer.Convert([]byte(markdown), &body); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>Daily Record - %s</title>\n", dateKey)
	fmt.Fprintf(&b, "<style>\n%s\n</style>\n", htmlStyle)
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
