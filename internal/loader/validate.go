package loader

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const recordSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["bookId", "title", "description", "genres"],
	"properties": {
		"bookId":      {"type": "string", "minLength": 1},
		"title":       {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"genres":      {"type": "string"}
	}
}`

// Validator checks records against the upload schema before they are batched.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator() (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Validate returns nil for a valid record, otherwise an error listing every violation.
func (v *Validator) Validate(r Record) error {
	res, err := v.schema.Validate(gojsonschema.NewGoLoader(r.Properties()))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid record: %s", strings.Join(msgs, "; "))
}
