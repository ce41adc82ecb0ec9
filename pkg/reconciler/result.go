package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/provenance"
	"github.com/agentstation/genemap/pkg/sources"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
)

// Record is one unified output row: the base attributes of a driving row
// plus one bundle per attached source.
type Record struct {
	// Key is the normalized join key of the driving row.
	Key string
	// Label is the driving key as spelled in the base table, or in the
	// driving list for a key the base does not list.
	Label string
	// Attributes are the base table cells in base column order. For a
	// driving key missing from the base only the key column is set.
	Attributes []tables.Cell
	// Bundles holds one bundle per attachment, in attachment order.
	Bundles []evidence.Bundle
}

// AttachmentInfo describes one attached source in a Result.
type AttachmentInfo struct {
	Name    string
	Source  types.SourceID
	Kind    types.EntityKind
	Column  string
	Columns []string
}

// Result represents the outcome of a reconciliation.
type Result struct {
	// Core data
	Columns     []string
	Records     []Record
	Attachments []AttachmentInfo

	// Gap analysis input: label lists the attached sources could not fully
	// reconcile, restricted for CpG sources to driving probes.
	References []sources.Reference

	// Metadata
	Metadata ResultMetadata

	// Provenance tracking
	Provenance provenance.Map

	// Issues are the non-fatal data problems of every attached source:
	// conflicts, unresolved labels and defaulted rank scores.
	Issues []error
}

// ResultMetadata contains metadata about the reconciliation. It is kept out
// of the records so that re-runs produce identical records.
type ResultMetadata struct {
	// RunID identifies this reconciliation in logs and reports
	RunID string

	// StartTime when reconciliation started
	StartTime time.Time

	// EndTime when reconciliation completed
	EndTime time.Time

	// Duration of the reconciliation
	Duration time.Duration

	// Join policy the records were laid out with
	Join JoinPolicy

	// Sources that were attached, by merger name
	Sources []string

	// Statistics about the reconciliation
	Stats ResultStatistics
}

// ResultStatistics contains statistics about the reconciliation.
type ResultStatistics struct {
	Records     int
	Duplicates  int // repeated gene base keys dropped
	Unmatched   int // records whose driving key has no base row
	Populated   int
	Empty       int
	Absent      int
	Conflicts   int
	Unresolved  int
	MissingRank int
	TotalTimeMs int64
}

// NewResult creates a new result with defaults.
func NewResult(runID string) *Result {
	return &Result{
		Provenance: make(provenance.Map),
		Issues:     []error{},
		Metadata: ResultMetadata{
			RunID:     runID,
			StartTime: time.Now().UTC(),
			Sources:   []string{},
		},
	}
}

// Finalize calculates duration and issue statistics.
func (r *Result) Finalize() {
	r.Metadata.EndTime = time.Now().UTC()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
	r.Metadata.Stats.TotalTimeMs = r.Metadata.Duration.Milliseconds()
	r.Metadata.Stats.Records = len(r.Records)

	for _, issue := range r.Issues {
		switch {
		case errors.IsConflict(issue):
			r.Metadata.Stats.Conflicts++
		case errors.IsUnresolved(issue):
			r.Metadata.Stats.Unresolved++
		case errors.IsMissingRankContext(issue):
			r.Metadata.Stats.MissingRank++
		}
	}
}

// Bundle returns the bundle the named attachment gave record i.
func (r *Result) Bundle(i int, name string) (evidence.Bundle, bool) {
	for j, a := range r.Attachments {
		if a.Name == name {
			return r.Records[i].Bundles[j], true
		}
	}
	return evidence.Bundle{}, false
}

// OutputColumns returns the base columns followed by every attachment's
// columns.
func (r *Result) OutputColumns() []string {
	cols := append([]string(nil), r.Columns...)
	for _, a := range r.Attachments {
		cols = append(cols, a.Columns...)
	}
	return cols
}

// Table renders the records. Every attachment column is present on every
// row; missing evidence is a null cell.
func (r *Result) Table(name string) *tables.Table {
	t := tables.New(name, r.OutputColumns()...)
	for _, rec := range r.Records {
		cells := append([]tables.Cell(nil), rec.Attributes...)
		for i, a := range r.Attachments {
			for _, col := range a.Columns {
				cells = append(cells, rec.Bundles[i].Cell(col))
			}
		}
		t.Append(cells...)
	}
	return t
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	s := r.Metadata.Stats
	return fmt.Sprintf("%s: %d records from %d sources (%d populated, %d empty, %d absent bundles; %d conflicts, %d unresolved labels)",
		r.Metadata.Join.Name(), s.Records, len(r.Attachments), s.Populated, s.Empty, s.Absent, s.Conflicts, s.Unresolved)
}
