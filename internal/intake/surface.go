package intake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// Surface is one input area with its own debounce timer and pending preview.
type Surface struct {
	pipeline   *Pipeline
	timer      *time.Timer
	preview    *Preview
	image      *StagedImage
	lastErr    error
	changed    chan struct{}
	name       string
	input      string
	generation uint64
	stats      Stats
	state      State
	mu         sync.Mutex
}

func newSurface(p *Pipeline, name string) *Surface {
	return &Surface{
		pipeline: p,
		name:     name,
		state:    StateIdle,
		changed:  make(chan struct{}),
	}
}

// Name returns the surface key.
func (s *Surface) Name() string {
	return s.name
}

// SetText records new input text. Unless a preview is pending, input of at
// least the minimum length arms a fresh debounce timer; the extraction runs
// when the timer fires with the input as it was when armed.
func (s *Surface) SetText(text string) error {
	if err := s.pipeline.checkOpen(); err != nil {
		return err
	}

	s.mu.Lock()
	s.input = text
	s.generation++
	s.stopTimerLocked()

	if s.state == StateExtracting {
		// The in-flight result now belongs to an older generation, and so
		// does any image it was read from.
		s.state = StateIdle
		s.image = nil
	}

	if !s.previewActiveLocked() && len(strings.TrimSpace(text)) >= s.pipeline.cfg.MinInputLength {
		gen := s.generation
		s.timer = time.AfterFunc(s.pipeline.cfg.Debounce, func() {
			s.fire(gen, text)
		})
	}
	snap := s.transitionLocked()
	s.mu.Unlock()

	s.pipeline.emit(snap)
	return nil
}

// Flush runs a pending debounce immediately, as when the user presses enter.
// It reports whether an extraction was started.
func (s *Surface) Flush() bool {
	s.mu.Lock()
	if s.timer == nil || !s.timer.Stop() {
		s.mu.Unlock()
		return false
	}
	gen, text := s.generation, s.input
	s.mu.Unlock()

	go s.fire(gen, text)
	return true
}

func (s *Surface) fire(gen uint64, text string) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.previewActiveLocked() || s.pipeline.closed.Load() {
		snap := s.transitionLocked()
		s.mu.Unlock()
		s.pipeline.emit(snap)
		return
	}
	s.state = StateExtracting
	s.lastErr = nil
	s.stats.Extractions++
	snap := s.transitionLocked()
	s.mu.Unlock()

	s.pipeline.emit(snap)

	rec := s.pipeline.extractor.ParseText(s.pipeline.ctx, text)
	s.accept(gen, rec, text, nil, model.SourceText)
}

// SelectImage stages an image and extracts it immediately. It is refused
// with ErrPreviewPending while a preview awaits confirmation.
func (s *Surface) SelectImage(data []byte, mimeType string) error {
	if err := s.pipeline.checkOpen(); err != nil {
		return err
	}
	if len(data) == 0 {
		return common.NewValidationError("image", "is empty")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return common.NewValidationError("image", fmt.Sprintf("unsupported type %q", mimeType))
	}

	s.mu.Lock()
	if s.previewActiveLocked() {
		s.mu.Unlock()
		return common.ErrPreviewPending
	}

	s.generation++
	s.stopTimerLocked()
	img := &StagedImage{MIMEType: mimeType, Data: append([]byte(nil), data...)}
	s.image = img
	s.state = StateExtracting
	s.lastErr = nil
	s.stats.Extractions++
	gen := s.generation
	snap := s.transitionLocked()
	s.mu.Unlock()

	s.pipeline.emit(snap)

	go func() {
		rec := s.pipeline.extractor.ParseImage(s.pipeline.ctx, img.Data, img.MIMEType)
		s.accept(gen, rec, "", img, model.SourceImage)
	}()
	return nil
}

// accept installs an extraction result as the pending preview if it still
// belongs to the current generation. Empty records are previews too.
func (s *Surface) accept(gen uint64, rec model.PartialRecord, raw string, img *StagedImage, source model.Source) {
	s.mu.Lock()
	if gen != s.generation || s.state != StateExtracting || s.pipeline.closed.Load() {
		s.stats.Stale++
		s.mu.Unlock()
		s.pipeline.logger.Debug("discarded stale extraction", "surface", s.name, "generation", gen)
		return
	}

	if rec.IsEmpty() {
		s.pipeline.logger.Info("extraction inconclusive", "surface", s.name, "source", source)
	}

	s.preview = &Preview{
		Record:      rec,
		RawInput:    raw,
		Image:       img,
		Model:       s.pipeline.modelName,
		Source:      source,
		ExtractedAt: s.pipeline.session.Now(),
	}
	s.state = StatePreviewReady
	snap := s.transitionLocked()
	s.mu.Unlock()

	s.pipeline.emit(snap)
}

// Confirm merges overrides with the pending preview and commits the result.
// On failure the preview is kept so the user can fix it and retry.
func (s *Surface) Confirm(ctx context.Context, overrides Overrides) (model.Transaction, error) {
	if err := s.pipeline.checkOpen(); err != nil {
		return model.Transaction{}, err
	}

	s.mu.Lock()
	if s.state != StatePreviewReady || s.preview == nil {
		s.mu.Unlock()
		return model.Transaction{}, common.ErrNoPreview
	}

	txn, err := s.pipeline.merge(*s.preview, s.input, overrides)
	if err != nil {
		s.lastErr = err
		snap := s.transitionLocked()
		s.mu.Unlock()
		s.pipeline.emit(snap)
		return model.Transaction{}, err
	}

	s.state = StateCommitting
	snap := s.transitionLocked()
	s.mu.Unlock()
	s.pipeline.emit(snap)

	created, err := s.pipeline.committer.CreateTransaction(ctx, txn)

	s.mu.Lock()
	if err != nil {
		s.state = StatePreviewReady
		s.lastErr = err
		snap = s.transitionLocked()
		s.mu.Unlock()
		s.pipeline.emit(snap)
		s.pipeline.logger.Warn("commit failed", "surface", s.name, "error", err)
		return model.Transaction{}, err
	}

	s.preview = nil
	s.image = nil
	s.input = ""
	s.lastErr = nil
	s.generation++
	s.stats.Commits++
	s.state = StateIdle
	snap = s.transitionLocked()
	s.mu.Unlock()
	s.pipeline.emit(snap)

	s.pipeline.logger.Info("transaction committed",
		"surface", s.name,
		"transaction_id", created.ID,
		"category", created.Category,
		"amount", created.Amount)
	return created, nil
}

// Cancel discards the pending preview or in-flight extraction along with any
// staged image. It reports false, changing nothing, when there is nothing to cancel.
func (s *Surface) Cancel() bool {
	s.mu.Lock()
	if s.state != StatePreviewReady && s.state != StateExtracting {
		s.mu.Unlock()
		return false
	}

	s.preview = nil
	s.image = nil
	s.lastErr = nil
	s.generation++
	s.stopTimerLocked()
	s.state = StateCancelled
	cancelled := s.transitionLocked()
	s.state = StateIdle
	idle := s.transitionLocked()
	s.mu.Unlock()

	s.pipeline.emit(cancelled, idle)
	return true
}

// Snapshot returns a copy of the surface state.
func (s *Surface) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Stats returns the surface counters.
func (s *Surface) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Await blocks until the surface is neither debouncing nor extracting.
func (s *Surface) Await(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		if s.timer == nil && s.state != StateExtracting {
			snap := s.snapshotLocked()
			s.mu.Unlock()
			return snap, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-changed:
		}
	}
}

func (s *Surface) previewActiveLocked() bool {
	return s.preview != nil
}

func (s *Surface) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Surface) stop() {
	s.mu.Lock()
	s.stopTimerLocked()
	if s.state == StateExtracting {
		s.state = StateIdle
	}
	s.transitionLocked()
	s.mu.Unlock()
}

// transitionLocked wakes Await callers and returns the snapshot to emit.
func (s *Surface) transitionLocked() Snapshot {
	close(s.changed)
	s.changed = make(chan struct{})
	return s.snapshotLocked()
}

func (s *Surface) snapshotLocked() Snapshot {
	snap := Snapshot{
		Surface:    s.name,
		State:      s.state,
		Input:      s.input,
		Generation: s.generation,
		Stats:      s.stats,
		HasImage:   s.image != nil,
		Debouncing: s.timer != nil,
	}
	if s.preview != nil {
		p := *s.preview
		snap.Preview = &p
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}
