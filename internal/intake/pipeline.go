package intake

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// NotifyFunc observes surface transitions. It is called without locks held.
type NotifyFunc func(surface string, snap Snapshot)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNotify registers an observer for every surface transition.
func WithNotify(fn NotifyFunc) Option {
	return func(p *Pipeline) {
		p.notify = fn
	}
}

// WithModel records the model name in preview provenance.
func WithModel(name string) Option {
	return func(p *Pipeline) {
		p.modelName = name
	}
}

// Pipeline owns the input surfaces of one session.
type Pipeline struct {
	ctx       context.Context
	extractor service.Extractor
	committer Committer
	logger    *slog.Logger
	notify    NotifyFunc
	cancel    context.CancelFunc
	surfaces  map[string]*Surface
	session   service.Session
	modelName string
	cfg       Config
	mu        sync.Mutex
	closed    atomic.Bool
}

// NewPipeline creates a pipeline bound to session.
func NewPipeline(session service.Session, extractor service.Extractor, committer Committer, cfg Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		ctx:       ctx,
		cancel:    cancel,
		session:   session,
		extractor: extractor,
		committer: committer,
		cfg:       cfg.withDefaults(),
		logger:    logger.With("user_id", session.UserID),
		surfaces:  make(map[string]*Surface),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Session returns the session the pipeline is bound to.
func (p *Pipeline) Session() service.Session {
	return p.session
}

// Surface returns the named surface, creating it on first use.
func (p *Pipeline) Surface(name string) *Surface {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.surfaces[name]
	if !ok {
		s = newSurface(p, name)
		p.surfaces[name] = s
	}
	return s
}

// Snapshots returns the state of every surface created so far.
func (p *Pipeline) Snapshots() []Snapshot {
	p.mu.Lock()
	surfaces := make([]*Surface, 0, len(p.surfaces))
	for _, s := range p.surfaces {
		surfaces = append(surfaces, s)
	}
	p.mu.Unlock()

	snaps := make([]Snapshot, 0, len(surfaces))
	for _, s := range surfaces {
		snaps = append(snaps, s.Snapshot())
	}
	return snaps
}

// Close stops all debounce timers and abandons in-flight extractions.
// Later calls are no-ops.
func (p *Pipeline) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.surfaces {
		s.stop()
	}
}

func (p *Pipeline) checkOpen() error {
	if p.closed.Load() {
		return common.ErrPipelineClosed
	}
	return nil
}

func (p *Pipeline) emit(snaps ...Snapshot) {
	if p.notify == nil {
		return
	}
	for _, snap := range snaps {
		p.notify(snap.Surface, snap)
	}
}
