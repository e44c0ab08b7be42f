package tui

import (
	"sync"

	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// surfaceChangedMsg tells the model to reread its surface.
type surfaceChangedMsg struct {
	snap intake.Snapshot
}

// committedMsg reports the outcome of a confirm.
type committedMsg struct {
	err error
	txn model.Transaction
}

// Updates carries intake transitions into a running program. Register Notify
// on the pipeline with intake.WithNotify.
type Updates struct {
	ch        chan intake.Snapshot
	done      chan struct{}
	closeOnce sync.Once
}

// NewUpdates creates an empty update feed.
func NewUpdates() *Updates {
	return &Updates{
		ch:   make(chan intake.Snapshot, 64),
		done: make(chan struct{}),
	}
}

// Notify queues a transition. It never blocks; when the program falls behind
// the transition is dropped and the next one rereads the surface anyway.
func (u *Updates) Notify(_ string, snap intake.Snapshot) {
	select {
	case <-u.done:
	case u.ch <- snap:
	default:
	}
}

// Close releases a program waiting for the next transition.
func (u *Updates) Close() {
	u.closeOnce.Do(func() { close(u.done) })
}

// wait returns a command that delivers the next transition.
func (u *Updates) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-u.ch:
			return surfaceChangedMsg{snap: snap}
		case <-u.done:
			return nil
		}
	}
}
