package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/genemap/pkg/errors"
)

func TestDefault(t *testing.T) {
	v, err := Default()
	require.NoError(t, err)

	assert.Contains(t, v.GWAS.Keywords, "schizophrenia")
	assert.Len(t, v.Harmonizome.Datasets, 11)
	assert.True(t, v.DisGeNET.PsychiatricClasses.Contains("Mental or Behavioral Dysfunction (T048)"))
	assert.Equal(t, "hyper", v.EWASAtlas.Polarity["pos"])
	assert.Equal(t, "NAPolarity", v.DisGeNET.Polarity[""])
}

func TestKeywords(t *testing.T) {
	k := Keywords{"bipolar", "Major Depressive"}
	assert.Equal(t, []string{"bipolar"}, k.Matches("Bipolar I disorder"))
	assert.Equal(t, []string{"major depressive"}, k.Matches("MAJOR DEPRESSIVE DISORDER"))
	assert.Empty(t, k.Matches("body mass index"))
	assert.True(t, k.Any("height", "bipolar disorder"))
	assert.False(t, k.Any("", "height"))
}

func TestTerms(t *testing.T) {
	terms := Terms{"Bipolar Disorder", "Schizophrenia"}
	assert.Equal(t, []string{"Schizophrenia"}, terms.Matches([]string{"schizophrenia ", "Humans"}))
	assert.True(t, terms.Contains(" bipolar disorder"))
	assert.False(t, terms.Contains("Bipolar"))
}

func TestPubMedIsGenetic(t *testing.T) {
	v, err := Default()
	require.NoError(t, err)

	assert.True(t, v.PubMed.IsGenetic("A genome-wide association study of bipolar disorder", nil))
	assert.True(t, v.PubMed.IsGenetic("BDNF Polymorphisms and depression", nil))
	assert.True(t, v.PubMed.IsGenetic("Clinical outcomes", []string{"genotype"}))
	assert.False(t, v.PubMed.IsGenetic("Geneticist interviews on depression", nil))
	assert.False(t, v.PubMed.IsGenetic("Cognitive therapy for anxiety", []string{"Humans"}))
}

func TestParseErrors(t *testing.T) {
	t.Run("bad pattern", func(t *testing.T) {
		_, err := Parse([]byte("gwas_catalog: {keywords: [a]}\nharmonizome: {keywords: [a]}\npubmed: {text_terms: [a], genetic_patterns: ['(']}\n"))
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("empty keywords", func(t *testing.T) {
		_, err := Parse([]byte("harmonizome: {keywords: [a]}\n"))
		assert.Error(t, err)
	})

	t.Run("load from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "v.yaml")
		require.NoError(t, os.WriteFile(path, []byte("gwas_catalog: {keywords: [autism]}\nharmonizome: {keywords: [autism]}\npubmed: {mesh_terms: [Autism Spectrum Disorder]}\n"), 0o600))
		v, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, Keywords{"autism"}, v.GWAS.Keywords)

		_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
