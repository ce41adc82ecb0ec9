// Package gaps accounts for every source label the reconciler could not
// attach to a canonical entity.
//
// Each unreconciled label lands in exactly one bucket: a known synonym
// (with the canonical symbols it stands for), an established gene symbol
// missing from the canonical table, or an unestablished locus whose name
// carries a dotted version suffix (clone and lncRNA nomenclature such as
// AP003039.3).
package gaps

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/normalize"
	"github.com/agentstation/genemap/pkg/sources"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
)

// Bucket is the diagnostic class of an unmapped label.
type Bucket string

const (
	// BucketSynonym holds labels that are aliases of canonical entities.
	BucketSynonym Bucket = "synonym"
	// BucketEstablished holds unknown gene-symbol-shaped labels.
	BucketEstablished Bucket = "established"
	// BucketUnestablished holds unknown labels with a dotted version suffix.
	BucketUnestablished Bucket = "unestablished"
)

// Diagnostic table columns.
const (
	ColEntity          = "entity"
	ColSource          = "source"
	ColLabels          = "labels"
	ColUncaptured      = "uncaptured_label"
	ColSynonymOf       = "synonym_of"
	ColUnmappedGenes   = "unmapped_genes"
	ColUnmappedRegions = "unmapped_regions"
)

// Entry is one unmapped label.
type Entry struct {
	Source types.SourceID
	// Entity is the driving entity the label was listed under.
	Entity string
	// Labels is the full label list the source gave for Entity.
	Labels []string
	// Label is the label that could not be captured.
	Label  string
	Status synonym.Status
	Bucket Bucket
	// SynonymOf lists the canonical symbols a synonym stands for. More than
	// one means the alias is ambiguous and was never attached.
	SynonymOf []string
}

// Ambiguous reports whether the label is an alias of several entities.
func (e Entry) Ambiguous() bool {
	return len(e.SynonymOf) > 1
}

// FindUnmapped classifies every label of refs that is not a canonical key
// of ix. Entries keep reference order and are unique per (source, entity,
// label).
func FindUnmapped(refs []sources.Reference, ix *synonym.Index) []Entry {
	var entries []Entry
	seen := make(map[[3]string]struct{})

	for _, ref := range refs {
		for _, label := range ref.Labels {
			m := ix.Lookup(label)
			if m.Status == synonym.Canonical {
				continue
			}
			k := [3]string{string(ref.Source), ref.Entity, ix.Normalizer().Key(label)}
			if _, dup := seen[k]; dup || k[2] == "" {
				continue
			}
			seen[k] = struct{}{}
			entries = append(entries, classify(ref, label, m, ix))
		}
	}
	return entries
}

func classify(ref sources.Reference, label string, m synonym.Match, ix *synonym.Index) Entry {
	e := Entry{
		Source: ref.Source,
		Entity: ref.Entity,
		Labels: slices.Clone(ref.Labels),
		Label:  strings.TrimSpace(label),
		Status: m.Status,
	}
	switch {
	case m.Status == synonym.Synonym:
		e.Bucket = BucketSynonym
		for _, key := range m.Candidates {
			sym, _ := ix.Symbol(key)
			e.SynonymOf = append(e.SynonymOf, sym)
		}
	case normalize.IsDotted(label):
		e.Bucket = BucketUnestablished
	default:
		e.Bucket = BucketEstablished
	}
	return e
}

// Report partitions unmapped entries into their buckets.
type Report struct {
	Entries       []Entry
	Synonym       []Entry
	Established   []Entry
	Unestablished []Entry
}

// Analyze finds and partitions the unmapped labels of refs.
func Analyze(refs []sources.Reference, ix *synonym.Index) *Report {
	r := &Report{Entries: FindUnmapped(refs, ix)}
	for _, e := range r.Entries {
		switch e.Bucket {
		case BucketSynonym:
			r.Synonym = append(r.Synonym, e)
		case BucketUnestablished:
			r.Unestablished = append(r.Unestablished, e)
		default:
			r.Established = append(r.Established, e)
		}
	}
	return r
}

// HasGaps returns true if any label went unmapped.
func (r *Report) HasGaps() bool {
	return len(r.Entries) > 0
}

// String returns a human-readable summary.
func (r *Report) String() string {
	if !r.HasGaps() {
		return "No unmapped labels"
	}
	return fmt.Sprintf("%d unmapped labels: %d synonyms, %d established, %d unestablished",
		len(r.Entries), len(r.Synonym), len(r.Established), len(r.Unestablished))
}

// Tables renders the two diagnostic tables. The established table holds
// synonym and established entries; the unestablished table holds the
// dotted-suffix loci.
func (r *Report) Tables() (established, unestablished *tables.Table) {
	established = newGapTable("unmapped_established")
	for _, e := range r.Entries {
		if e.Bucket != BucketUnestablished {
			appendEntry(established, e)
		}
	}
	unestablished = newGapTable("unmapped_unestablished")
	for _, e := range r.Unestablished {
		appendEntry(unestablished, e)
	}
	return established, unestablished
}

func newGapTable(name string) *tables.Table {
	return tables.New(name, ColEntity, ColSource, ColLabels, ColUncaptured, ColSynonymOf)
}

func appendEntry(t *tables.Table, e Entry) {
	synonymOf := tables.Null()
	if len(e.SynonymOf) > 0 {
		synonymOf = tables.String(strings.Join(e.SynonymOf, constants.ListSeparator))
	}
	t.Append(
		tables.String(e.Entity),
		tables.String(string(e.Source)),
		tables.String(strings.Join(e.Labels, constants.ListSeparator)),
		tables.String(e.Label),
		synonymOf,
	)
}

// Summary is the per-entity view of the unknown labels.
type Summary struct {
	Entity string
	// Genes are established unknown symbols; synonyms are not listed.
	Genes []string
	// Regions are unestablished loci.
	Regions []string
}

// Summaries returns one summary per entity with an unknown label, in first
// seen order.
func (r *Report) Summaries() []Summary {
	var out []Summary
	index := make(map[string]int)
	for _, e := range r.Entries {
		if e.Bucket == BucketSynonym {
			continue
		}
		i, ok := index[e.Entity]
		if !ok {
			i = len(out)
			index[e.Entity] = i
			out = append(out, Summary{Entity: e.Entity})
		}
		s := &out[i]
		if e.Bucket == BucketUnestablished {
			s.Regions = appendUnique(s.Regions, e.Label)
		} else {
			s.Genes = appendUnique(s.Genes, e.Label)
		}
	}
	return out
}

// SummaryTable renders Summaries with unmapped_genes and unmapped_regions
// columns; an empty list is null.
func (r *Report) SummaryTable() *tables.Table {
	t := tables.New("unmapped_summary", ColEntity, ColUnmappedGenes, ColUnmappedRegions)
	for _, s := range r.Summaries() {
		t.Append(tables.String(s.Entity), listCell(s.Genes), listCell(s.Regions))
	}
	return t
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

func listCell(values []string) tables.Cell {
	if len(values) == 0 {
		return tables.Null()
	}
	return tables.String(strings.Join(values, constants.ListSeparator))
}
