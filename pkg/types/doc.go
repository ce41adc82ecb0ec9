// Package types provides shared type definitions used across the genemap packages.
//
// It holds the identifiers of data sources and entity kinds that the
// mergers, the reconciler, the gap analyzer and provenance tracking all
// refer to, without importing one another.
//
//nolint:revive // Package name 'types' is appropriate for common type definitions
package types
