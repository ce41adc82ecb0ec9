// Package vocab holds the curated term lists that decide which upstream
// hits are relevant. Lists are configuration, loaded from YAML and passed to
// the mergers explicitly; no merger carries a hard-coded list.
package vocab

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/genemap/internal/embedded"
	"github.com/agentstation/genemap/pkg/errors"
)

// Keywords match free text by case-insensitive substring.
type Keywords []string

// Matches returns the keywords found in text, in list order.
func (k Keywords) Matches(text string) []string {
	lt := strings.ToLower(text)
	var out []string
	for _, kw := range k {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(lt, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// Any reports whether any keyword occurs in any of texts.
func (k Keywords) Any(texts ...string) bool {
	for _, t := range texts {
		if len(k.Matches(t)) > 0 {
			return true
		}
	}
	return false
}

// Terms match controlled vocabulary headings by case-insensitive equality.
type Terms []string

// Matches returns the terms present in headings, in list order and with
// the list's spelling.
func (t Terms) Matches(headings []string) []string {
	have := make(map[string]struct{}, len(headings))
	for _, h := range headings {
		have[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	var out []string
	for _, term := range t {
		if _, ok := have[strings.ToLower(strings.TrimSpace(term))]; ok {
			out = append(out, term)
		}
	}
	return out
}

// Contains reports whether value equals one of the terms, ignoring case and padding.
func (t Terms) Contains(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return slices.ContainsFunc(t, func(term string) bool {
		return strings.ToLower(strings.TrimSpace(term)) == v
	})
}

// GWAS filters GWAS Catalog associations by trait text.
type GWAS struct {
	Keywords Keywords `yaml:"keywords"`
}

// Harmonizome restricts Harmonizome associations to disease datasets and
// relevant attribute names.
type Harmonizome struct {
	Datasets Terms    `yaml:"datasets"`
	Keywords Keywords `yaml:"keywords"`
}

// PubMed selects relevant articles and flags genetic studies.
type PubMed struct {
	MeSHTerms        Terms    `yaml:"mesh_terms"`
	TextTerms        Keywords `yaml:"text_terms"`
	GeneticMeSHTerms Terms    `yaml:"genetic_mesh_terms"`
	GeneticPatterns  []string `yaml:"genetic_patterns"`

	patterns []*regexp.Regexp
}

// IsGenetic reports whether an article looks like a genetic or variant study.
func (p *PubMed) IsGenetic(title string, mesh []string) bool {
	if len(p.GeneticMeSHTerms.Matches(mesh)) > 0 {
		return true
	}
	for _, re := range p.patterns {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// DisGeNET configures the psychiatric filter and polarity display.
type DisGeNET struct {
	PsychiatricClasses Terms             `yaml:"psychiatric_classes"`
	Polarity           map[string]string `yaml:"polarity"`
}

// EWASAtlas configures the correlation display vocabulary.
type EWASAtlas struct {
	Polarity map[string]string `yaml:"polarity"`
}

// Vocabulary is the full set of lists used by one run.
type Vocabulary struct {
	GWAS        GWAS        `yaml:"gwas_catalog"`
	Harmonizome Harmonizome `yaml:"harmonizome"`
	PubMed      PubMed      `yaml:"pubmed"`
	DisGeNET    DisGeNET    `yaml:"disgenet"`
	EWASAtlas   EWASAtlas   `yaml:"ewas_atlas"`
}

// Parse decodes and validates a vocabulary document.
func Parse(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	if err := v.compile(); err != nil {
		return nil, err
	}
	return &v, nil
}

// Load reads a vocabulary file.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	v, err := Parse(data)
	if err != nil {
		return nil, errors.NewConfigError("vocab", fmt.Sprintf("cannot load %s", path), err)
	}
	return v, nil
}

// Default returns the vocabularies embedded in the binary.
func Default() (*Vocabulary, error) {
	data, err := embedded.FS.ReadFile(embedded.VocabulariesFile)
	if err != nil {
		return nil, errors.WrapIO("read", embedded.VocabulariesFile, err)
	}
	return Parse(data)
}

func (v *Vocabulary) compile() error {
	v.PubMed.patterns = v.PubMed.patterns[:0]
	for _, p := range v.PubMed.GeneticPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return errors.NewValidationError("pubmed.genetic_patterns", p, err.Error())
		}
		v.PubMed.patterns = append(v.PubMed.patterns, re)
	}
	if len(v.GWAS.Keywords) == 0 {
		return errors.NewValidationError("gwas_catalog.keywords", nil, "must not be empty")
	}
	if len(v.Harmonizome.Keywords) == 0 {
		return errors.NewValidationError("harmonizome.keywords", nil, "must not be empty")
	}
	if len(v.PubMed.MeSHTerms) == 0 && len(v.PubMed.TextTerms) == 0 {
		return errors.NewValidationError("pubmed", nil, "needs mesh_terms or text_terms")
	}
	return nil
}
