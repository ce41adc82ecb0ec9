//nolint:revive // Package types provides common type definitions
package types

import "slices"

// SourceID identifies an upstream evidence source.
type SourceID string

// String returns the string representation of a source ID.
func (id SourceID) String() string {
	return string(id)
}

// Known evidence sources.
const (
	// GWASCatalogID identifies the NHGRI-EBI GWAS Catalog association export.
	GWASCatalogID SourceID = "gwas_catalog"

	// HarmonizomeID identifies Harmonizome gene-attribute associations.
	HarmonizomeID SourceID = "harmonizome"

	// PubMedID identifies PubMed literature hits per gene.
	PubMedID SourceID = "pubmed"

	// DisGeNETID identifies DisGeNET gene-disease associations.
	DisGeNETID SourceID = "disgenet"

	// EWASAtlasID identifies EWAS Atlas CpG-trait associations.
	EWASAtlasID SourceID = "ewas_atlas"
)

// SourceIDs returns all source identifiers in reconciliation column order.
func SourceIDs() []SourceID {
	return []SourceID{
		GWASCatalogID,
		HarmonizomeID,
		PubMedID,
		DisGeNETID,
		EWASAtlasID,
	}
}

// IsValid returns true if the SourceID is one of the defined constants.
func (id SourceID) IsValid() bool {
	return slices.Contains(SourceIDs(), id)
}

// Kind returns the entity kind the source is keyed by.
func (id SourceID) Kind() EntityKind {
	if id == EWASAtlasID {
		return EntityCpG
	}
	return EntityGene
}
