package response

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Query extracts a value from a JSON body using a gjson path. An empty path
// returns the whole body.
func (r *Response) Query(path string) (any, bool) {
	body := r.BodyString()
	if !gjson.Valid(body) {
		if path == "" {
			return body, true
		}
		return nil, false
	}

	parsed := gjson.Parse(body)
	if path == "" {
		return parsed.Value(), true
	}

	result := parsed.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// QueryString is Query rendered as text: strings verbatim, everything else as JSON.
func (r *Response) QueryString(path string) (string, bool) {
	body := r.BodyString()
	if path == "" {
		return body, true
	}
	if !gjson.Valid(body) {
		return "", false
	}
	result := gjson.Get(body, path)
	if !result.Exists() {
		return "", false
	}
	if result.Type == gjson.String {
		return result.Str, true
	}
	return result.Raw, true
}

// ValidateSchema checks the JSON body against a JSON Schema document.
func (r *Response) ValidateSchema(schema []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(schema)
	documentLoader := gojsonschema.NewStringLoader(r.BodyString())

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(errs, "; "))
}
