package gaps

import (
	"strconv"

	"github.com/agentstation/genemap/pkg/reconciler"
	"github.com/agentstation/genemap/pkg/tables"
)

// Coverage table columns.
const (
	ColState     = "state"
	ColCount     = "count"
	ColConflicts = "conflicts"
)

// Coverage lists, per record and attached source, the bundle state. It keeps
// "absent from the source" and "present with zero qualifying hits" apart.
func Coverage(res *reconciler.Result) *tables.Table {
	t := tables.New("coverage", ColEntity, ColSource, ColState, ColCount, ColConflicts)
	for _, rec := range res.Records {
		entity := rec.Label
		if entity == "" {
			entity = rec.Key
		}
		for i, a := range res.Attachments {
			b := rec.Bundles[i]
			t.Append(
				tables.String(entity),
				tables.String(a.Name),
				tables.String(b.State.String()),
				b.CountCell(),
				tables.String(strconv.Itoa(b.Conflicts)),
			)
		}
	}
	return t
}
