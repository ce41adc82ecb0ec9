// Package reconciler joins merged source evidence onto a driving table of
// genes or CpG probes and produces one unified record per driving row.
//
// The join key is always the normalized entity key. Every attached source
// contributes its full column set to every record; a driving row without
// evidence gets null cells, never a missing column. Records are a pure
// function of the inputs: re-running a reconciliation on unchanged input
// reproduces identical records regardless of worker count.
package reconciler

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/logging"
	"github.com/agentstation/genemap/pkg/provenance"
	"github.com/agentstation/genemap/pkg/sources"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
)

// chunkSize is the number of driving rows one worker task builds.
const chunkSize = 256

// Reconciler is the main interface for merging sources and joining their
// evidence onto a driving table.
type Reconciler interface {
	// Merge runs each merger over its raw table, keyed by merger name.
	// Mergers without a table are skipped. Outputs keep merger order.
	Merge(ctx context.Context, mergers []sources.Merger, raw map[string]*tables.Table, ix *synonym.Index) ([]*sources.Output, error)

	// Reconcile joins the attached outputs onto the driving rows
	Reconcile(ctx context.Context, in Input) (*Result, error)
}

// Input describes one join.
type Input struct {
	// Base is the entity attribute table (gene annotation or CpG mapping).
	Base *tables.Table
	// KeyColumn is the base column holding the entity key.
	KeyColumn string
	// Kind is the entity kind of the driving rows.
	Kind types.EntityKind
	// Join overrides the reconciler's default policy.
	Join JoinPolicy
	// Keys is the driving list for right and outer joins (e.g. the CpG list).
	Keys []string
	// Attachments are joined in order.
	Attachments []Attachment
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	options *options
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{options: options}, nil
}

func (r *reconciler) logger(ctx context.Context) *zerolog.Logger {
	if r.options.logger != nil {
		return r.options.logger
	}
	return logging.FromContext(ctx)
}

// Merge runs the mergers concurrently. A merger's configuration error (a
// missing required column) fails the whole merge.
func (r *reconciler) Merge(ctx context.Context, mergers []sources.Merger, raw map[string]*tables.Table, ix *synonym.Index) ([]*sources.Output, error) {
	logger := r.logger(ctx)
	ctx = logging.WithLogger(ctx, logger)
	outputs := make([]*sources.Output, len(mergers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.options.workers)
	for i, m := range mergers {
		t, ok := raw[m.Name()]
		if !ok || t == nil {
			logger.Warn().Str("source", m.Name()).Msg("No table for source, skipping")
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.WrapCanceled("merge", err)
			}
			out, err := m.Merge(gctx, t, ix)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]*sources.Output, 0, len(outputs))
	for _, out := range outputs {
		if out == nil {
			continue
		}
		if r.options.recorder != nil {
			r.options.recorder.RecordOutput(out)
		}
		merged = append(merged, out)
	}
	return merged, nil
}

// reconcileContext holds shared state for one reconciliation.
type reconcileContext struct {
	in         Input
	policy     JoinPolicy
	collector  *collector
	logger     *zerolog.Logger
	tracker    provenance.Tracker
	rows       []drivingRow
	rawKeys    map[string]string // normalized driving key -> first raw spelling
	duplicates int
}

// Reconcile performs the join with a clean step-by-step flow.
func (r *reconciler) Reconcile(ctx context.Context, in Input) (*Result, error) {
	result := NewResult(uuid.NewString())

	// Step 1: Validate input and lay out the driving rows
	rctx, err := r.initialize(logging.WithRunID(ctx, result.Metadata.RunID), in)
	if err != nil {
		return nil, err
	}

	// Step 2: Build records
	records, err := r.records(ctx, rctx)
	if err != nil {
		return nil, err
	}

	// Step 3: Assemble result
	r.result(rctx, result, records)
	rctx.logger.Info().
		Str("join", rctx.policy.String()).
		Int("records", len(records)).
		Int("sources", len(rctx.collector.attachments)).
		Int("issues", len(result.Issues)).
		Dur("duration", result.Metadata.Duration).
		Msg("Reconciled records")
	return result, nil
}

// initialize validates the input and lays out the driving rows.
func (r *reconciler) initialize(ctx context.Context, in Input) (*reconcileContext, error) {
	logger := r.logger(ctx)

	policy := in.Join
	if policy == "" {
		policy = r.options.join
	}
	if !policy.Valid() {
		return nil, errors.NewValidationError("join", string(policy), "must be left, right or outer")
	}
	if in.KeyColumn == "" {
		return nil, errors.NewValidationError("key_column", nil, "cannot be empty")
	}
	if in.Base == nil {
		if policy == JoinLeft {
			return nil, errors.NewValidationError("base", nil, "a left join needs a base table")
		}
		in.Base = tables.New("base", in.KeyColumn)
	}
	if err := in.Base.Require(in.KeyColumn); err != nil {
		return nil, err
	}

	collector, err := newCollector(in, logger)
	if err != nil {
		return nil, err
	}

	norm := r.options.normalizer
	baseKeys := make([]string, in.Base.Len())
	for i := range baseKeys {
		baseKeys[i] = norm.Key(in.Base.Row(i).String(in.KeyColumn))
	}
	rawKeys := make(map[string]string, len(in.Keys))
	keys := make([]string, len(in.Keys))
	for i, k := range in.Keys {
		keys[i] = norm.Key(k)
		if _, ok := rawKeys[keys[i]]; !ok {
			rawKeys[keys[i]] = k
		}
	}

	// A gene table lists each gene once; a CpG mapping has one row per
	// (probe, gene) and repeats probes on purpose.
	unique := in.Kind == types.EntityGene
	rows, duplicates := drivingRows(policy, baseKeys, keys, unique)
	if duplicates > 0 {
		logger.Warn().
			Str("column", in.KeyColumn).
			Int("dropped", duplicates).
			Msg("Base table repeats keys, keeping the first row of each")
	}
	logger.Debug().
		Str("join", policy.String()).
		Int("base_rows", len(baseKeys)).
		Int("driving_keys", len(rawKeys)).
		Int("records", len(rows)).
		Msg("Laid out driving rows")

	return &reconcileContext{
		in:         in,
		policy:     policy,
		collector:  collector,
		logger:     logger,
		tracker:    provenance.NewTracker(r.options.tracking),
		rows:       rows,
		rawKeys:    rawKeys,
		duplicates: duplicates,
	}, nil
}

// records builds every record. Chunks run concurrently and write by index,
// so record order never depends on scheduling.
func (r *reconciler) records(ctx context.Context, rctx *reconcileContext) ([]Record, error) {
	records := make([]Record, len(rctx.rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.options.workers)
	for start := 0; start < len(rctx.rows); start += chunkSize {
		end := min(start+chunkSize, len(rctx.rows))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.WrapCanceled("reconcile", err)
			}
			for i := start; i < end; i++ {
				records[i] = r.record(rctx, rctx.rows[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// record attaches every source's bundle to one driving row.
func (r *reconciler) record(rctx *reconcileContext, row drivingRow) Record {
	rawKey := rctx.rawKeys[row.key]
	label := rawKey
	if row.base >= 0 {
		label = rctx.in.Base.Row(row.base).String(rctx.in.KeyColumn)
	}
	rec := Record{
		Key:        row.key,
		Label:      label,
		Attributes: baseCells(rctx.in.Base, rctx.in.KeyColumn, row, rawKey),
		Bundles:    make([]evidence.Bundle, len(rctx.collector.attachments)),
	}
	for i, a := range rctx.collector.attachments {
		value, ok := joinValue(rctx.in, a, row, rawKey)
		if !ok {
			rec.Bundles[i] = a.output.Bundle("")
			continue
		}
		rec.Bundles[i] = a.output.Bundle(r.options.normalizer.Key(value))
	}
	return rec
}

// result fills the result, its statistics and provenance in record order.
func (r *reconciler) result(rctx *reconcileContext, result *Result, records []Record) {
	result.Columns = rctx.in.Base.Columns()
	result.Records = records
	result.Attachments = rctx.collector.infos()
	result.Metadata.Join = rctx.policy
	result.Metadata.Sources = rctx.collector.names()
	result.Issues = rctx.collector.collectIssues()

	driving := make(map[string]string, len(records))
	stats := &result.Metadata.Stats
	stats.Duplicates = rctx.duplicates
	for _, rec := range records {
		if _, ok := driving[rec.Key]; !ok {
			driving[rec.Key] = rec.Label
		}
	}
	for i, row := range rctx.rows {
		if row.base < 0 {
			stats.Unmatched++
		}
		for j, b := range records[i].Bundles {
			a := rctx.collector.attachments[j]
			switch b.State {
			case evidence.StatePopulated:
				stats.Populated++
			case evidence.StateEmpty:
				stats.Empty++
			default:
				stats.Absent++
			}
			rctx.tracker.Track(rctx.in.Kind, records[i].Key, a.info.Name, provenance.Provenance{
				Source:    a.output.Source,
				Column:    a.info.Name,
				State:     b.State.String(),
				Count:     b.Count,
				Stamp:     b.Stamp,
				Conflicts: b.Conflicts,
			})
			if r.options.recorder != nil {
				r.options.recorder.RecordBundle(a.info.Name, b.State)
			}
		}
	}
	if r.options.recorder != nil {
		r.options.recorder.RecordRecords(rctx.policy.String(), len(records))
	}

	result.References = rctx.collector.collectReferences(rctx.in.Kind, driving)
	result.Provenance = rctx.tracker.Map()
	result.Finalize()
}
