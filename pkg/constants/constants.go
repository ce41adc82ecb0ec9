// Package constants provides shared constants used throughout the genemap codebase.
// This includes rendering separators, file permissions, limits and the
// default column names of the upstream tables.
package constants

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Rendering constants define the cell text encoding.
const (
	// FieldSeparator joins the fields of one evidence item.
	FieldSeparator = ", "

	// ItemSeparator joins the items of one evidence cell.
	ItemSeparator = ";\n"

	// ListSeparator joins scalar aggregates such as PMIDs or dataset names.
	ListSeparator = "; "

	// ConflictMarker replaces the strength of a conflicting group.
	ConflictMarker = "error"

	// MissingValue renders an absent year or reference.
	MissingValue = "NA"

	// RankDecimals is the fixed precision of rank-fraction strengths.
	RankDecimals = 3
)

// Limit constants define various limits and capacities
const (
	// DefaultWorkers is the default per-entity merge parallelism.
	DefaultWorkers = 4

	// MaxWorkers caps per-entity merge parallelism.
	MaxWorkers = 64

	// MaxCellLength is the largest text Excel accepts in one cell.
	MaxCellLength = 32767
)

// Default column names of the base and mapping tables.
const (
	ColumnSymbol   = "symbol"
	ColumnSynonyms = "synonyms"
	ColumnCpG      = "cpg"
	ColumnGene     = "gene"
	ColumnChrom    = "chr"
	ColumnStart    = "Start_hg38"
	ColumnEnd      = "End_hg38"
	ColumnGeneList = "unique_gene_name"

	// UnmappedGene is the gene value of a CpG with no gene annotation.
	UnmappedGene = "unmapped"
)

// Environment and config file names.
const (
	EnvPrefix      = "GENEMAP"
	ConfigFileName = ".genemap"
)
