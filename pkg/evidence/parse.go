package evidence

import (
	"fmt"
	"strings"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
)

// Parsed is one rendered evidence line split back into its fields.
type Parsed struct {
	Label     string
	Strength  string
	Polarity  string
	Year      string
	Reference string
	Note      string
}

// Parse recovers the ordered fields of a rendered cell. Separators inside
// parentheses belong to a reference; surplus separators belong to the label.
func Parse(text string, layout Layout) ([]Parsed, error) {
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, constants.ItemSeparator)
	out := make([]Parsed, 0, len(lines))

	for n, line := range lines {
		fields := splitTopLevel(line)
		want := len(layout.Fields)
		if len(fields) < want {
			return nil, &errors.ParseError{
				Format:  "evidence",
				Line:    n + 1,
				Message: fmt.Sprintf("expected %d fields, got %d", want, len(fields)),
			}
		}
		if extra := len(fields) - want; extra > 0 {
			if want == 0 || layout.Fields[0] != FieldLabel {
				return nil, &errors.ParseError{
					Format:  "evidence",
					Line:    n + 1,
					Message: fmt.Sprintf("expected %d fields, got %d", want, len(fields)),
				}
			}
			label := strings.Join(fields[:extra+1], constants.FieldSeparator)
			fields = append([]string{label}, fields[extra+1:]...)
		}

		var p Parsed
		for i, f := range layout.Fields {
			switch f {
			case FieldLabel:
				p.Label = fields[i]
			case FieldStrength:
				p.Strength = fields[i]
			case FieldPolarity:
				p.Polarity = fields[i]
			case FieldYear:
				p.Year = fields[i]
			case FieldReference:
				p.Reference = fields[i]
			case FieldNote:
				p.Note = fields[i]
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// splitTopLevel splits on the field separator outside parentheses.
func splitTopLevel(line string) []string {
	var (
		fields []string
		depth  int
		start  int
	)
	sep := constants.FieldSeparator
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 && strings.HasPrefix(line[i:], sep) {
				fields = append(fields, line[start:i])
				i += len(sep) - 1
				start = i + 1
			}
		}
	}
	return append(fields, line[start:])
}
