// Package export turns a finished generation into a downloadable document.
// Markdown and HTML are rendered locally; PDF and Word are delegated to the
// external renderer service and come back as opaque blobs.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/davidbz/promptlab/internal/domain"
	"github.com/davidbz/promptlab/internal/observability"
)

// Format identifies an export target format.
type Format string

// Supported export formats.
const (
	FormatPDF      Format = "pdf"
	FormatWord     Format = "word"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

const exportFileBase = "generated_content"

var (
	// ErrNoContent indicates an export with nothing to render; checked
	// before any renderer activity.
	ErrNoContent = errors.New("no content to export")

	// ErrUnsupportedFormat indicates an unknown export format.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrExportInFlight indicates an export of the same format is outstanding.
	ErrExportInFlight = errors.New("export already in progress")
)

// Valid reports whether the format is supported.
func (f Format) Valid() bool {
	switch f {
	case FormatPDF, FormatWord, FormatMarkdown, FormatHTML:
		return true
	default:
		return false
	}
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	if f == FormatWord {
		return "docx"
	}
	return string(f)
}

// ContentType returns the MIME type of the exported file.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatWord:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Payload carries the result being exported.
type Payload struct {
	SystemPrompt string       `json:"system_prompt,omitempty"`
	UserPrompt   string       `json:"user_prompt"`
	Content      string       `json:"content"`
	Provider     string       `json:"provider,omitempty"`
	Model        string       `json:"model,omitempty"`
	Usage        domain.Usage `json:"usage"`
	GeneratedAt  time.Time    `json:"generated_at"`
}

// File is a rendered export ready for download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Renderer produces document bytes for formats the dispatcher does not
// render locally.
type Renderer interface {
	Render(ctx context.Context, format Format, payload *Payload) ([]byte, error)
}

// Dispatcher runs exports with at most one in flight per format.
// Exports of different formats may run concurrently.
type Dispatcher struct {
	renderer Renderer

	mu       sync.Mutex
	inFlight map[Format]bool
}

// NewDispatcher creates an export dispatcher.
func NewDispatcher(renderer Renderer) *Dispatcher {
	return &Dispatcher{
		renderer: renderer,
		inFlight: make(map[Format]bool),
	}
}

// Export renders the payload into the requested format. Failures name the
// format; the operation is never retried.
func (d *Dispatcher) Export(ctx context.Context, format Format, payload *Payload) (*File, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if payload == nil || strings.TrimSpace(payload.Content) == "" {
		return nil, ErrNoContent
	}

	if err := d.enter(format); err != nil {
		return nil, err
	}
	defer d.exit(format)

	ctx = observability.WithOperation(ctx, "export")
	logger := observability.FromContext(ctx)
	logger.Info("export started", observability.String("format", string(format)))

	data, err := d.render(ctx, format, payload)
	if err != nil {
		logger.Error("export failed",
			observability.String("format", string(format)),
			observability.Error(err))
		return nil, fmt.Errorf("export to %s failed: %w", format, err)
	}

	logger.Info("export completed",
		observability.String("format", string(format)),
		observability.Int("bytes", len(data)))

	return &File{
		Name:        exportFileBase + "." + format.Extension(),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// InFlight reports whether an export of the format is outstanding.
func (d *Dispatcher) InFlight(format Format) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight[format]
}

func (d *Dispatcher) enter(format Format) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[format] {
		return fmt.Errorf("%w: %s", ErrExportInFlight, format)
	}
	d.inFlight[format] = true
	return nil
}

func (d *Dispatcher) exit(format Format) {
	d.mu.Lock()
	delete(d.inFlight, format)
	d.mu.Unlock()
}

func (d *Dispatcher) render(ctx context.Context, format Format, payload *Payload) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return composeMarkdown(payload), nil
	case FormatHTML:
		return renderHTML(payload)
	case FormatPDF, FormatWord:
		if d.renderer == nil {
			return nil, errors.New("no renderer configured")
		}
		return d.renderer.Render(ctx, format, payload)
	default:
		return nil, ErrUnsupportedFormat
	}
}
