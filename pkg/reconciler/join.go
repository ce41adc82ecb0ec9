package reconciler

import (
	"strings"

	"github.com/agentstation/genemap/pkg/errors"
)

// JoinPolicy decides which rows drive a reconciliation.
type JoinPolicy string

const (
	// JoinLeft keeps every base table row. Used for the gene phase.
	JoinLeft JoinPolicy = "left"
	// JoinRight keeps every key of the driving list, joined to matching base
	// rows. Used for the CpG phase so that every supplied probe survives.
	JoinRight JoinPolicy = "right"
	// JoinOuter keeps base rows followed by driving keys missing from the base.
	JoinOuter JoinPolicy = "outer"
)

// String returns the string representation of a join policy.
func (j JoinPolicy) String() string {
	return string(j)
}

// Name returns a display name such as "Left Join".
func (j JoinPolicy) Name() string {
	s := j.String()
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:] + " Join"
}

// Valid reports whether j is a known policy.
func (j JoinPolicy) Valid() bool {
	switch j {
	case JoinLeft, JoinRight, JoinOuter:
		return true
	}
	return false
}

// ParseJoinPolicy parses a policy name, case-insensitively.
func ParseJoinPolicy(s string) (JoinPolicy, error) {
	j := JoinPolicy(strings.ToLower(strings.TrimSpace(s)))
	if !j.Valid() {
		return "", errors.NewValidationError("join", s, "must be left, right or outer")
	}
	return j, nil
}

// drivingRow is one output record before evidence is attached: a base row
// index, or -1 for a driving key the base table does not list.
type drivingRow struct {
	key  string
	base int
}

// drivingRows lays out the records of a join in output order. Base rows keep
// base order; driving keys keep list order with duplicates dropped. With
// unique set only the first base row of a repeated key is kept, and the
// number of rows dropped is returned.
func drivingRows(policy JoinPolicy, baseKeys []string, keys []string, unique bool) ([]drivingRow, int) {
	byKey := make(map[string][]int, len(baseKeys))
	dropped := 0
	for i, k := range baseKeys {
		if unique && k != "" && len(byKey[k]) > 0 {
			dropped++
			continue
		}
		byKey[k] = append(byKey[k], i)
	}
	keep := func(i int) bool {
		if !unique || baseKeys[i] == "" {
			return true
		}
		return byKey[baseKeys[i]][0] == i
	}

	var rows []drivingRow
	switch policy {
	case JoinLeft:
		for i, k := range baseKeys {
			if keep(i) {
				rows = append(rows, drivingRow{key: k, base: i})
			}
		}
	case JoinRight:
		seen := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			if _, dup := seen[k]; dup || k == "" {
				continue
			}
			seen[k] = struct{}{}
			matches := byKey[k]
			if len(matches) == 0 {
				rows = append(rows, drivingRow{key: k, base: -1})
				continue
			}
			for _, i := range matches {
				rows = append(rows, drivingRow{key: k, base: i})
			}
		}
	case JoinOuter:
		for i, k := range baseKeys {
			if keep(i) {
				rows = append(rows, drivingRow{key: k, base: i})
			}
		}
		seen := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			if _, dup := seen[k]; dup || k == "" {
				continue
			}
			seen[k] = struct{}{}
			if len(byKey[k]) == 0 {
				rows = append(rows, drivingRow{key: k, base: -1})
			}
		}
	}
	return rows, dropped
}
