package evidence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/genemap/pkg/types"
)

var scoreLayout = Layout{Fields: []Field{FieldLabel, FieldStrength}}

func score(label string, v float64) Item {
	return Item{Label: label, Strength: Float(v), Kind: KindScore, Tag: "disgenet"}
}

func TestFormatSortStability(t *testing.T) {
	items := []Item{
		score("Bipolar Disorder", 0.7),
		score("Schizophrenia", 0.5),
		score("Anxiety", 0.5),
	}

	f := Format(items, scoreLayout)

	assert.Equal(t, []string{
		"Bipolar Disorder, 0.7",
		"Anxiety, 0.5",
		"Schizophrenia, 0.5",
	}, f.Lines)
	assert.Equal(t, "Bipolar Disorder, 0.7;\nAnxiety, 0.5;\nSchizophrenia, 0.5", f.Text)
	assert.True(t, f.Valid)
}

func TestFormatConflict(t *testing.T) {
	items := []Item{
		score("Bipolar Disorder", 0.6),
		score("Bipolar Disorder", 0.4),
		score("Depression", 0.5),
	}

	f := Format(items, scoreLayout)

	require.Len(t, f.Groups, 2)
	assert.Equal(t, []string{"Bipolar Disorder, error", "Depression, 0.5"}, f.Lines,
		"conflict sorts by its strongest value and is never averaged")
	require.Len(t, f.Conflicts(), 1)
	assert.Equal(t, []float64{0.6, 0.4}, f.Conflicts()[0].Values)
	assert.NotContains(t, f.Text, "0.5;\n", "no averaged value")
}

func TestFormatDedup(t *testing.T) {
	t.Run("same value collapses", func(t *testing.T) {
		f := Format([]Item{score("Anxiety", 0.3), score("anxiety ", 0.3)}, scoreLayout)
		assert.Len(t, f.Groups, 1)
		assert.False(t, f.Groups[0].Conflict)
		assert.Equal(t, "Anxiety, 0.3", f.Text)
	})

	t.Run("different tags stay separate", func(t *testing.T) {
		a := score("Anxiety", 0.3)
		b := score("Anxiety", 0.4)
		b.Tag = "other"
		f := Format([]Item{a, b}, scoreLayout)
		assert.Len(t, f.Groups, 2)
		assert.Empty(t, f.Conflicts())
	})
}

func TestFormatEmpty(t *testing.T) {
	f := Format(nil, scoreLayout)
	assert.False(t, f.Valid)
	assert.Empty(t, f.Text)
	assert.Empty(t, f.Groups)
}

func TestFormatNullStrengthLast(t *testing.T) {
	items := []Item{
		{Label: "A", Kind: KindScore, Tag: "s"},
		score("B", 0.1),
	}
	f := Format(items, scoreLayout)
	assert.Equal(t, []string{"B, 0.1", "A, NA"}, f.Lines)
}

func TestFormatPValueAscending(t *testing.T) {
	items := []Item{
		{Label: "Schizophrenia", Strength: Float(1e-5), Kind: KindPValue},
		{Label: "Autism", Strength: Float(2e-12), Kind: KindPValue},
	}
	f := Format(items, scoreLayout)
	assert.Equal(t, []string{"Autism, 2e-12", "Schizophrenia, 1e-05"}, f.Lines)
}

var atlasLayout = Layout{
	Fields:   []Field{FieldLabel, FieldStrength, FieldPolarity, FieldReference},
	Polarity: map[string]string{"pos": "hyper", "neg": "hypo", "na": "NR", "": "NR"},
}

func TestFormatRank(t *testing.T) {
	items := []Item{
		{Label: "Obesity", Strength: Float(0), Kind: KindRank, PolarityRaw: "neg", Polarity: PolarityNegative, Reference: PMIDRef("456"), Tag: "456"},
		{Label: "BMI", Strength: Float(0.1), Kind: KindRank, PolarityRaw: "pos", Polarity: PolarityPositive, Reference: PMIDRef("123"), Tag: "123"},
		{Label: "Age", Strength: Float(0.1), Kind: KindRank, Reference: PMIDRef("789"), Tag: "789"},
	}

	f := Format(items, atlasLayout)

	assert.Equal(t, []string{
		"BMI, 0.100, hyper, 123",
		"Age, 0.100, NR, 789",
		"Obesity, 0.000, hypo, 456",
	}, f.Lines)
	assert.Equal(t, "neg", items[0].PolarityRaw, "raw value retained")
}

func TestFormatStrength(t *testing.T) {
	assert.Equal(t, "0.000", FormatStrength(nil, KindRank))
	assert.Equal(t, "0.333", FormatStrength(Float(1.0/3.0), KindRank))
	assert.Equal(t, "1.000", FormatStrength(Float(1), KindRank))
	assert.Equal(t, "0.7", FormatStrength(Float(0.7), KindScore))
	assert.Equal(t, "NA", FormatStrength(nil, KindScore))
}

var detailLayout = Layout{
	Fields:   []Field{FieldLabel, FieldPolarity, FieldYear, FieldReference},
	Detail:   true,
	Polarity: map[string]string{"": "NAPolarity"},
}

func TestFormatDetail(t *testing.T) {
	items := []Item{
		{Label: "Schizophrenia", Strength: Float(0.4), Kind: KindScore, Year: Int(2010), Reference: PMIDRef("3"), Tag: "disgenet"},
		{Label: "Schizophrenia", Strength: Float(0.4), Kind: KindScore, PolarityRaw: "Negative", Polarity: PolarityNegative, Year: Int(2001), Reference: PMIDRef("2"), Tag: "disgenet"},
		{Label: "Schizophrenia", Strength: Float(0.4), Kind: KindScore, Year: Int(2004), Reference: PMIDRef("1348843"), Tag: "disgenet"},
		{Label: "Schizophrenia", Strength: Float(0.4), Kind: KindScore, PolarityRaw: "Positive", Polarity: PolarityPositive, Reference: Reference{Source: "CTD_human", Type: "Biomarker"}, Tag: "disgenet"},
		{Label: "Bipolar Disorder", Strength: Float(0.9), Kind: KindScore, PolarityRaw: "Positive", Polarity: PolarityPositive, Year: Int(2015), Reference: PMIDRef("9"), Tag: "disgenet"},
	}

	f := Format(items, detailLayout)

	assert.Equal(t, []string{
		"Bipolar Disorder, Positive, 2015, 9",
		"Schizophrenia, Positive, NA, NA(CTD_human, Biomarker)",
		"Schizophrenia, NAPolarity, 2004, 1348843",
		"Schizophrenia, NAPolarity, 2010, 3",
		"Schizophrenia, Negative, 2001, 2",
	}, f.Lines)
	assert.Len(t, f.Groups, 2)
}

func TestFormatReferenceTiebreak(t *testing.T) {
	items := []Item{
		{Label: "Autism", Strength: Float(0.5), Kind: KindScore, Reference: PMIDRef("200"), Tag: "a"},
		{Label: "Autism", Strength: Float(0.5), Kind: KindScore, Reference: PMIDRef("100"), Tag: "b"},
	}
	f := Format(items, Layout{Fields: []Field{FieldLabel, FieldReference}})
	assert.Equal(t, []string{"Autism, 100", "Autism, 200"}, f.Lines)
}

func TestFormatDeterministic(t *testing.T) {
	items := []Item{score("X", 0.2), score("Y", 0.2), score("Z", 0.9), score("x", 0.1)}
	first := Format(items, scoreLayout).Text
	for range 5 {
		assert.Equal(t, first, Format(items, scoreLayout).Text)
	}
}

func TestParseRoundTrip(t *testing.T) {
	items := []Item{
		{Label: "Alzheimer disease, late onset", Strength: Float(0.6), Kind: KindScore, PolarityRaw: "Positive", Polarity: PolarityPositive, Year: Int(2011), Reference: PMIDRef("42"), Tag: "d"},
		{Label: "Autism", Strength: Float(0.25), Kind: KindScore, Reference: Reference{Source: "GWASCAT", Type: "GeneticVariation"}, Tag: "d"},
	}
	layout := Layout{Fields: []Field{FieldLabel, FieldStrength, FieldPolarity, FieldYear, FieldReference}}

	f := Format(items, layout)
	parsed, err := Parse(f.Text, layout)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, Parsed{Label: "Alzheimer disease, late onset", Strength: "0.6", Polarity: "Positive", Year: "2011", Reference: "42"}, parsed[0])
	assert.Equal(t, Parsed{Label: "Autism", Strength: "0.25", Polarity: "NA", Year: "NA", Reference: "NA(GWASCAT, GeneticVariation)"}, parsed[1])
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("only-label", Layout{Fields: []Field{FieldLabel, FieldStrength}})
	assert.Error(t, err)

	got, err := Parse("", scoreLayout)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestParsePolarity(t *testing.T) {
	assert.Equal(t, PolarityPositive, ParsePolarity("pos"))
	assert.Equal(t, PolarityPositive, ParsePolarity(" Positive"))
	assert.Equal(t, PolarityNegative, ParsePolarity("neg"))
	assert.Equal(t, PolarityUnknown, ParsePolarity("NAPolarity"))
	assert.Equal(t, PolarityUnknown, ParsePolarity(""))
}

func TestReferenceString(t *testing.T) {
	assert.Equal(t, "123", PMIDRef(" 123").String())
	assert.Equal(t, "NA(S1, T1)", Reference{Source: "S1", Type: "T1"}.String())
	assert.Equal(t, "abc(S1, NA)", Reference{Value: "abc", Source: "S1"}.String())
	assert.Equal(t, "NA", Reference{}.String())
	assert.True(t, Reference{}.IsZero())
}

func TestBundle(t *testing.T) {
	absent := Absent(types.GWASCatalogID, "RHOF")
	assert.Equal(t, StateAbsent, absent.State)
	assert.False(t, absent.CountCell().Valid)
	assert.False(t, absent.Cell("gwas_traits").Valid)

	f := Format([]Item{score("Anxiety", 0.2)}, scoreLayout)
	b := NewBundle(types.DisGeNETID, "BCR", StatePopulated, len(f.Groups), f.Labels(), nil)
	assert.Equal(t, "1", b.CountCell().Value)
	assert.Equal(t, []string{"Anxiety"}, b.Labels)
	assert.True(t, strings.HasPrefix(StateEmpty.String(), "empty"))
}
