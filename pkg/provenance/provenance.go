// Package provenance records where every reconciled cell came from.
//
// Each source table is described by a Stamp (version, retrieval time, query).
// Bundles carry their source's Stamp, and the reconciler tracks which source
// filled which column of which record so a "ghost" association can be traced
// back to the upstream file that produced it.
package provenance

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/types"
)

// Stamp describes one fetched source table.
type Stamp struct {
	Source      types.SourceID `yaml:"source"`
	Version     string         `yaml:"version,omitempty"`
	RetrievedAt time.Time      `yaml:"retrieved_at,omitempty"`
	Query       string         `yaml:"query,omitempty"`
	File        string         `yaml:"file,omitempty"`
}

// String renders the stamp compactly for logs.
func (s Stamp) String() string {
	parts := []string{string(s.Source)}
	if s.Version != "" {
		parts = append(parts, "v"+s.Version)
	}
	if !s.RetrievedAt.IsZero() {
		parts = append(parts, s.RetrievedAt.UTC().Format(time.RFC3339))
	}
	return strings.Join(parts, "@")
}

// Provenance tracks the origin of one column value.
type Provenance struct {
	Source    types.SourceID `yaml:"source"`
	Column    string         `yaml:"column"`
	State     string         `yaml:"state"`
	Count     int            `yaml:"count"`
	Stamp     Stamp          `yaml:"stamp"`
	Conflicts int            `yaml:"conflicts,omitempty"`
}

// Map tracks provenance for multiple entities.
type Map map[string][]Provenance // key is "kind:entity:column"

// Tracker manages provenance tracking during reconciliation.
type Tracker interface {
	// Track records provenance for a column of an entity
	Track(kind types.EntityKind, entity, column string, p Provenance)

	// FindByColumn retrieves provenance for one column
	FindByColumn(kind types.EntityKind, entity, column string) []Provenance

	// FindByEntity retrieves all provenance for an entity
	FindByEntity(kind types.EntityKind, entity string) map[string][]Provenance

	// Map returns a copy of the complete provenance map
	Map() Map
}

// tracker is the default implementation. It is safe for concurrent use.
type tracker struct {
	mu         sync.Mutex
	provenance Map
	enabled    bool
}

// NewTracker creates a new provenance tracker. A disabled tracker records nothing.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

func (p *tracker) Track(kind types.EntityKind, entity, column string, prov Provenance) {
	if !p.enabled {
		return
	}
	key := makeKey(kind, entity, column)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.provenance[key] = append(p.provenance[key], prov)
}

func (p *tracker) FindByColumn(kind types.EntityKind, entity, column string) []Provenance {
	if !p.enabled {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Provenance(nil), p.provenance[makeKey(kind, entity, column)]...)
}

func (p *tracker) FindByEntity(kind types.EntityKind, entity string) map[string][]Provenance {
	if !p.enabled {
		return nil
	}
	prefix := fmt.Sprintf("%s:%s:", kind, entity)

	p.mu.Lock()
	defer p.mu.Unlock()
	result := make(map[string][]Provenance)
	for key, info := range p.provenance {
		if column, found := strings.CutPrefix(key, prefix); found {
			result[column] = append([]Provenance(nil), info...)
		}
	}
	return result
}

func (p *tracker) Map() Map {
	if !p.enabled {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make(Map, len(p.provenance))
	for k, v := range p.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

func makeKey(kind types.EntityKind, entity, column string) string {
	return fmt.Sprintf("%s:%s:%s", kind, entity, column)
}

// Report summarizes a Map per source.
type Report struct {
	Sources []SourceSummary `yaml:"sources"`
}

// SourceSummary counts the cells one source filled.
type SourceSummary struct {
	Stamp     Stamp `yaml:"stamp"`
	Populated int   `yaml:"populated"`
	Empty     int   `yaml:"empty"`
	Absent    int   `yaml:"absent"`
	Conflicts int   `yaml:"conflicts"`
}

// GenerateReport creates a per-source report from a Map. Sources are
// ordered by ID.
func GenerateReport(m Map) *Report {
	bySource := make(map[types.SourceID]*SourceSummary)
	for _, infos := range m {
		for _, info := range infos {
			s, ok := bySource[info.Source]
			if !ok {
				s = &SourceSummary{Stamp: info.Stamp}
				bySource[info.Source] = s
			}
			switch info.State {
			case "populated":
				s.Populated++
			case "empty":
				s.Empty++
			default:
				s.Absent++
			}
			s.Conflicts += info.Conflicts
		}
	}

	ids := make([]string, 0, len(bySource))
	for id := range bySource {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	report := &Report{}
	for _, id := range ids {
		report.Sources = append(report.Sources, *bySource[types.SourceID(id)])
	}
	return report
}

// File is the on-disk provenance document.
type File struct {
	Report     *Report `yaml:"report"`
	Provenance Map     `yaml:"provenance"`
}

// Save writes the map and its report as YAML.
func Save(path string, m Map) error {
	data, err := yaml.Marshal(File{Report: GenerateReport(m), Provenance: m})
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Load reads a provenance file. Returns nil, nil if the file doesn't exist.
func Load(path string) (*File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &f, nil
}
