package genemap

import (
	"sync"

	"github.com/agentstation/genemap/pkg/sources"
)

// Hook function types for run events
type (
	// SourceMergedHook is called once per merged source, in merger order
	SourceMergedHook func(out *sources.Output)

	// PhaseCompleteHook is called when a reconciliation phase finishes
	PhaseCompleteHook func(phase *Phase)
)

// hooks manages event callbacks for runs
type hooks struct {
	mu              sync.RWMutex
	onSourceMerged  []SourceMergedHook
	onPhaseComplete []PhaseCompleteHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnSourceMerged registers a callback for merged sources
func (h *hooks) OnSourceMerged(fn SourceMergedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSourceMerged = append(h.onSourceMerged, fn)
}

// OnPhaseComplete registers a callback for finished phases
func (h *hooks) OnPhaseComplete(fn PhaseCompleteHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPhaseComplete = append(h.onPhaseComplete, fn)
}

func (h *hooks) triggerSourceMerged(outs []*sources.Output) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, out := range outs {
		for _, hook := range h.onSourceMerged {
			hook(out)
		}
	}
}

func (h *hooks) triggerPhaseComplete(p *Phase) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onPhaseComplete {
		hook(p)
	}
}
