package application

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	tokenPattern     = regexp.MustCompile(`\[(.+?)\]`)
	lineBreakPattern = regexp.MustCompile(`[\r\n]+`)
)

// missingToken replaces tokens that have no matching field.
const missingToken = " "

// FieldLookup returns the text fields of the record identified by a layer
// tag and a record uid.
type FieldLookup interface {
	FieldValues(ctx context.Context, tag, uid string) (map[string]string, error)
}

// TemplateResolver expands [field] tokens of popup templates.
type TemplateResolver struct {
	fields FieldLookup
}

// NewTemplateResolver creates a new template resolver.
func NewTemplateResolver(fields FieldLookup) *TemplateResolver {
	return &TemplateResolver{fields: fields}
}

// Resolve substitutes every [name] token of tmpl, left to right, with the
// value of the field called name on the record (tag, uid). Each token issues
// its own lookup. Tokens without a matching field become a single space.
// Line breaks are stripped from the result.
func (r *TemplateResolver) Resolve(ctx context.Context, tmpl, tag, uid string) (string, error) {
	matches := tokenPattern.FindAllStringSubmatchIndex(tmpl, -1)
	if len(matches) == 0 {
		return lineBreakPattern.ReplaceAllString(tmpl, ""), nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(tmpl[last:m[0]])

		name := tmpl[m[2]:m[3]]
		values, err := r.fields.FieldValues(ctx, tag, uid)
		if err != nil {
			return "", fmt.Errorf("resolving token %q: %w", name, err)
		}
		if v, ok := values[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(missingToken)
		}

		last = m[1]
	}
	b.WriteString(tmpl[last:])

	return lineBreakPattern.ReplaceAllString(b.String(), ""), nil
}
