package reconciler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/sources"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
)

// Attachment joins one merged source onto the driving rows.
type Attachment struct {
	// Name labels the attachment; defaults to the output's merger name.
	Name string
	// Output is the merged source.
	Output *sources.Output
	// Column is the base column holding the join value; defaults to the
	// input's key column.
	Column string
}

// attachment is a validated Attachment.
type attachment struct {
	info   AttachmentInfo
	output *sources.Output
}

// collector validates attachments and gathers what they carry besides
// bundles: issues and gap references.
type collector struct {
	attachments []attachment
	logger      *zerolog.Logger
}

// newCollector validates attachments against the base table.
func newCollector(in Input, logger *zerolog.Logger) (*collector, error) {
	c := &collector{logger: logger}
	names := make(map[string]struct{}, len(in.Attachments))

	for i, a := range in.Attachments {
		if a.Output == nil {
			return nil, errors.NewValidationError(fmt.Sprintf("attachments[%d]", i), nil, "output cannot be nil")
		}
		name := a.Name
		if name == "" {
			name = a.Output.Name
		}
		if name == "" {
			name = string(a.Output.Source)
		}
		if _, dup := names[name]; dup {
			return nil, errors.NewValidationError("attachments", name, "duplicate attachment name")
		}
		names[name] = struct{}{}

		column := a.Column
		if column == "" {
			column = in.KeyColumn
		}
		if in.Base != nil && !in.Base.Has(column) {
			return nil, errors.NewValidationError("attachments."+name+".column", column, "not a base table column")
		}

		c.attachments = append(c.attachments, attachment{
			info: AttachmentInfo{
				Name:    name,
				Source:  a.Output.Source,
				Kind:    a.Output.Kind,
				Column:  column,
				Columns: append([]string(nil), a.Output.Columns...),
			},
			output: a.Output,
		})
	}
	return c, nil
}

// infos returns the attachment descriptions in order.
func (c *collector) infos() []AttachmentInfo {
	out := make([]AttachmentInfo, len(c.attachments))
	for i, a := range c.attachments {
		out[i] = a.info
	}
	return out
}

// names returns the attachment names in order.
func (c *collector) names() []string {
	out := make([]string, len(c.attachments))
	for i, a := range c.attachments {
		out[i] = a.info.Name
	}
	return out
}

// collectIssues concatenates every attachment's issues in attachment order.
func (c *collector) collectIssues() []error {
	var out []error
	for _, a := range c.attachments {
		out = append(out, a.output.Issues...)
	}
	return out
}

// collectReferences gathers the gap references of attachments keyed like
// the driving rows. References of CpG-keyed sources are kept only for
// probes among the driving keys and are renamed to the driving spelling.
// driving maps normalized keys to their labels.
func (c *collector) collectReferences(kind types.EntityKind, driving map[string]string) []sources.Reference {
	var out []sources.Reference
	for _, a := range c.attachments {
		if kind == types.EntityCpG && a.info.Kind != types.EntityCpG {
			continue
		}
		for _, ref := range a.output.References {
			if a.info.Kind == types.EntityCpG {
				label, ok := driving[ref.Entity]
				if !ok {
					continue
				}
				if label != "" {
					ref.Entity = label
				}
			}
			out = append(out, ref)
		}
	}
	c.logger.Debug().Int("references", len(out)).Msg("Collected gap references")
	return out
}

// joinValue returns the raw join cell of an attachment for a driving row.
func joinValue(in Input, a attachment, row drivingRow, rawKey string) (string, bool) {
	if row.base < 0 {
		if a.info.Column == in.KeyColumn {
			return rawKey, true
		}
		return "", false
	}
	return in.Base.Row(row.base).Get(a.info.Column)
}

// baseCells copies the base cells of a driving row, or builds a key-only
// row for a driving key the base does not list.
func baseCells(base *tables.Table, keyColumn string, row drivingRow, rawKey string) []tables.Cell {
	if row.base >= 0 {
		return base.Cells(row.base)
	}
	cols := base.Columns()
	cells := make([]tables.Cell, len(cols))
	for i, col := range cols {
		if col == keyColumn {
			cells[i] = tables.String(rawKey)
		}
	}
	return cells
}
