package builder

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

const (
	DocumentVersion = "1.0"
	DocumentType    = "superman-links-elementor-template"

	MetaData         = "_elementor_data"
	MetaEditMode     = "_elementor_edit_mode"
	MetaTemplateType = "_elementor_template_type"
	MetaVersion      = "_elementor_version"
	MetaPageSettings = "_elementor_page_settings"
	MetaCSS          = "_elementor_css"

	EditModeBuilder     = "builder"
	DefaultTemplateType = "page"
	DefaultImportTitle  = "Imported Template"

	widgetElType = "widget"
)

var (
	ErrNotFound          = errors.New("page not found")
	ErrNotBuilderContent = errors.New("page is not built with the page builder")
	ErrMissingLayoutData = errors.New("layout data is required")
	ErrCreateFailed      = errors.New("could not create page")
)

// CreateError is returned when the repository refuses a new record. It
// matches ErrCreateFailed and the repository error.
type CreateError struct {
	Err error
}

func (e *CreateError) Error() string {
	return ErrCreateFailed.Error() + ": " + e.Err.Error()
}

func (e *CreateError) Unwrap() []error {
	return []error{ErrCreateFailed, e.Err}
}

var (
	importPostTypes = []string{"page", "post"}
	importStatuses  = []string{"publish", "draft", "pending", "private"}
)

// Document is the portable export of a record's builder state.
type Document struct {
	Version   string         `json:"version"`
	Type      string         `json:"type"`
	Source    Source         `json:"source"`
	Page      PageDescriptor `json:"page"`
	Elementor Payload        `json:"elementor"`
	SEO       *SEOSnapshot   `json:"seo"`
}

type Source struct {
	SiteURL    string `json:"site_url"`
	PostID     int64  `json:"post_id"`
	PostURL    string `json:"post_url"`
	ExportedAt string `json:"exported_at"`
}

type PageDescriptor struct {
	Title        *string `json:"title"`
	Slug         string  `json:"slug"`
	PostType     string  `json:"post_type"`
	Status       string  `json:"status"`
	TemplateType string  `json:"template_type"`
}

// Payload holds the layout tree and page settings as decoded JSON
// (or the raw stored string when it was not valid JSON).
type Payload struct {
	Version      string `json:"version"`
	Data         any    `json:"data"`
	PageSettings any    `json:"page_settings"`
	CSS          any    `json:"css"`
}

type SEOSnapshot struct {
	FocusKeyword    *string `json:"focus_keyword"`
	MetaTitle       *string `json:"meta_title"`
	MetaDescription *string `json:"meta_description"`
}

func (s *SEOSnapshot) isEmpty() bool {
	if s == nil {
		return true
	}
	for _, v := range []*string{s.FocusKeyword, s.MetaTitle, s.MetaDescription} {
		if v != nil && *v != "" {
			return false
		}
	}
	return true
}

// HasLayoutData reports whether the document carries a usable layout tree.
func (d *Document) HasLayoutData() bool {
	return d != nil && !isEmptyValue(d.Elementor.Data)
}

// DecodeDocument parses a request body into a Document. Numbers are kept
// as json.Number so re-encoding does not change them.
func DecodeDocument(body []byte) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CountWidgets counts nodes whose elType is "widget", descending into each
// node's "elements". Anything that is not a list or object of nodes counts
// as zero.
func CountWidgets(tree any) int {
	var elements []any
	switch t := tree.(type) {
	case []any:
		elements = t
	case map[string]any:
		for _, v := range t {
			elements = append(elements, v)
		}
	default:
		return 0
	}

	count := 0
	for _, element := range elements {
		node, ok := element.(map[string]any)
		if !ok {
			continue
		}
		if elType, _ := node["elType"].(string); elType == widgetElType {
			count++
		}
		if children, ok := node["elements"]; ok && !isEmptyValue(children) {
			count += CountWidgets(children)
		}
	}
	return count
}

// decodeStored turns a stored blob back into a tree. Empty values decode to
// nil, invalid JSON to nil.
func decodeStored(raw string) any {
	if isEmptyValue(raw) {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// encodeForStorage stores strings as-is and everything else as compact
// JSON without HTML escaping.
func encodeForStorage(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// isEmptyValue mirrors the host platform's notion of "empty": nil, "",
// "0", false, zero numbers and empty collections.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == "" || t == "0"
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
