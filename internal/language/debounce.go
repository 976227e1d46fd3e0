package language

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/davidbz/promptlab/internal/domain"
	"github.com/davidbz/promptlab/internal/observability"
)

const detectTimeout = 10 * time.Second

// Debouncer coalesces bursts of prompt edits into at most one detection
// request per quiet interval. Detection is always best-effort: failures are
// logged, clear the displayed detection and never block generation.
type Debouncer struct {
	detector Detector
	quiet    time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	current *domain.LanguageDetection
}

// NewDebouncer creates a debouncer over the given detector.
func NewDebouncer(detector Detector, quiet time.Duration) *Debouncer {
	return &Debouncer{detector: detector, quiet: quiet}
}

// Input records an edit to the prompt text. Empty input cancels any pending
// detection and clears the displayed one immediately, without a network call.
func (d *Debouncer) Input(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++

	if strings.TrimSpace(text) == "" {
		d.current = nil
		return
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.quiet, func() {
		d.fire(gen, text)
	})
}

// Detection returns the current detection, or nil when none is displayed.
func (d *Debouncer) Detection() *domain.LanguageDetection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Stop cancels any pending detection.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *Debouncer) fire(gen uint64, text string) {
	d.mu.Lock()
	stale := gen != d.gen
	d.mu.Unlock()
	if stale {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
	defer cancel()
	ctx = observability.WithOperation(ctx, "detect_language")

	detection, err := d.detector.Detect(ctx, text)

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		// Superseded while the request was outstanding.
		return
	}

	if err != nil {
		observability.FromContext(ctx).Warn("language detection failed",
			observability.Error(err))
		d.current = nil
		return
	}
	// Each detection supersedes the previous one; never merged.
	d.current = detection
}
