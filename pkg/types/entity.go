package types

// EntityKind identifies what a record's key names.
type EntityKind string

const (
	// EntityGene is keyed by canonical gene symbol (e.g. BCR).
	EntityGene EntityKind = "gene"

	// EntityCpG is keyed by methylation probe ID (e.g. cg00000029).
	EntityCpG EntityKind = "cpg"
)

// String returns the string representation of an entity kind.
func (k EntityKind) String() string {
	return string(k)
}
