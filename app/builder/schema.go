package builder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrInvalidJSON     = errors.New("invalid JSON body")
	ErrInvalidDocument = errors.New("invalid template document")
)

// DocumentError lists the places where a request body does not have the
// shape of a template document.
type DocumentError struct {
	Issues []string
}

func (e *DocumentError) Error() string {
	return strings.Join(e.Issues, "; ")
}

func (e *DocumentError) Unwrap() error {
	return ErrInvalidDocument
}

var (
	nullableString = map[string]any{"type": []any{"string", "null"}}
	nullableObject = func(properties map[string]any) map[string]any {
		return map[string]any{"type": []any{"object", "null"}, "properties": properties}
	}
)

// documentSchema only constrains the fields that are decoded into typed
// values. Layout data and settings may hold anything.
var documentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"version": nullableString,
		"type":    nullableString,
		"source": nullableObject(map[string]any{
			"site_url":    nullableString,
			"post_id":     map[string]any{"type": []any{"integer", "null"}},
			"post_url":    nullableString,
			"exported_at": nullableString,
		}),
		"page": nullableObject(map[string]any{
			"title":         nullableString,
			"slug":          nullableString,
			"post_type":     nullableString,
			"status":        nullableString,
			"template_type": nullableString,
		}),
		"elementor": nullableObject(map[string]any{
			"version": nullableString,
		}),
		"seo": nullableObject(map[string]any{
			"focus_keyword":    nullableString,
			"meta_title":       nullableString,
			"meta_description": nullableString,
		}),
	},
}

var compiledDocumentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	encoded, err := json.Marshal(documentSchema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("document.json", bytes.NewReader(encoded)); err != nil {
		return nil, err
	}
	return compiler.Compile("document.json")
})

// ParseDocument validates and decodes a request body. An empty body is an
// empty document.
func ParseDocument(body []byte) (*Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return &Document{}, nil
	}

	var raw any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	schema, err := compiledDocumentSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile document schema: %w", err)
	}

	if err := schema.Validate(raw); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return nil, &DocumentError{Issues: collectIssues(validationErr)}
		}
		return nil, err
	}

	return DecodeDocument(body)
}

func collectIssues(err *jsonschema.ValidationError) []string {
	issues := []string{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			location := node.InstanceLocation
			if location == "" {
				location = "/"
			}
			issues = append(issues, location+": "+strings.TrimSpace(node.Message))
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
