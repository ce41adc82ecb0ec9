// Package sources turns already-fetched upstream association tables into
// per-entity evidence bundles.
//
// Each upstream source (GWAS Catalog, Harmonizome, PubMed, DisGeNET, EWAS
// Atlas) has a Merger. A merger filters rows for relevance with the
// vocabulary it was built with, resolves row labels to canonical entity keys
// through a synonym index, and delegates ordering and rendering to the
// evidence package. Mergers never read files or talk to the network.
//
// Example usage:
//
//	v, _ := vocab.Default()
//	m := sources.NewDisGeNET(v.DisGeNET, sources.WithPsychiatricOnly(true))
//	out, err := m.Merge(ctx, disgenetTable, index)
//	bundle := out.Bundles["BCR"]
package sources

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/provenance"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
)

// Merger aggregates one upstream table into evidence bundles.
type Merger interface {
	// Name identifies the merger; it prefixes its output columns
	Name() string

	// Source returns the upstream source this merger reads
	Source() types.SourceID

	// Kind returns the entity kind bundles are keyed by
	Kind() types.EntityKind

	// Columns returns the output columns in order
	Columns() []string

	// Merge builds one bundle per entity present in raw. Rows whose labels
	// cannot be attached are reported in the Output, never as an error.
	// A nil index leaves every gene label unresolved.
	Merge(ctx context.Context, raw *tables.Table, ix *synonym.Index) (*Output, error)
}

// Reference is one row's list of entity labels, kept for gap analysis.
type Reference struct {
	Source types.SourceID
	// Entity is the driving entity the labels were listed under. For
	// CpG-keyed sources it is the probe key; for gene-keyed sources it is
	// the raw label cell.
	Entity string
	Labels []string
}

// Output is the result of one Merge.
type Output struct {
	Name       string // merger name
	Source     types.SourceID
	Kind       types.EntityKind
	Columns    []string
	Bundles    map[string]evidence.Bundle
	References []Reference
	Issues     []error
	Stats      Stats

	stamp provenance.Stamp
}

// Bundle returns the bundle of key, or an absent bundle.
func (o *Output) Bundle(key string) evidence.Bundle {
	if b, ok := o.Bundles[key]; ok {
		return b
	}
	return evidence.Absent(o.Source, key).WithStamp(o.stamp)
}

// Keys returns the bundle keys sorted.
func (o *Output) Keys() []string {
	keys := make([]string, 0, len(o.Bundles))
	for k := range o.Bundles {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Stamp attaches provenance to every bundle, including the absent bundles
// Bundle returns later.
func (o *Output) Stamp(s provenance.Stamp) {
	o.stamp = s
	for k, b := range o.Bundles {
		o.Bundles[k] = b.WithStamp(s)
	}
}

// Stats counts rows through a merge.
type Stats struct {
	Rows       int // raw rows read
	Relevant   int // rows passing the relevance filter
	Unresolved int // distinct labels matching no entity
	Ambiguous  int // distinct labels that are shared aliases
	Conflicts  int // (entity, label) groups with disagreeing strengths
	Populated  int // bundles with at least one item
	Empty      int // bundles present in the source with no relevant item
}

// Sources is a thread-safe container of mergers.
type Sources struct {
	mu      sync.RWMutex
	mergers map[string]Merger
}

// NewSources creates a container holding the given mergers.
func NewSources(mergers ...Merger) *Sources {
	s := &Sources{mergers: make(map[string]Merger)}
	for _, m := range mergers {
		s.Set(m)
	}
	return s
}

// Get returns a merger by name.
func (s *Sources) Get(name string) (Merger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mergers[name]
	return m, ok
}

// Set registers a merger, replacing any merger with the same name.
func (s *Sources) Set(m Merger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergers[m.Name()] = m
}

// Len returns the number of mergers.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mergers)
}

// List returns the mergers in types.SourceIDs order, then by name.
func (s *Sources) List() []Merger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Merger, 0, len(s.mergers))
	for _, m := range s.mergers {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Merger) int {
		ia := slices.Index(types.SourceIDs(), a.Source())
		ib := slices.Index(types.SourceIDs(), b.Source())
		if ia != ib {
			return ia - ib
		}
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}
