package embedded

import (
	"embed"
)

// FS embeds the default vocabularies shipped with the binary.
//
//go:embed vocabularies.yaml
var FS embed.FS

// VocabulariesFile is the path of the default vocabularies inside FS.
const VocabulariesFile = "vocabularies.yaml"
