// Package schemas validates inbound JSON documents against the embedded
// JSON Schemas before they are decoded.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed request.schema.json
	requestSchema string

	//go:embed runfile.schema.json
	runFileSchema string

	//go:embed scrape.schema.json
	scrapeSchema string
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// First returns the first failure as "field: message".
func (ve *ValidationError) First() string {
	if len(ve.Errors) == 0 {
		return "invalid document"
	}
	return ve.Errors[0].Field + ": " + ve.Errors[0].Message
}

// SchemaLoadError represents errors loading or parsing the schema or the
// document itself.
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// ValidateRequest checks an automation request as accepted over HTTP.
func ValidateRequest(doc []byte) error {
	return Validate("request", requestSchema, doc)
}

// ValidateRunFile checks a CLI run file: a request plus an inline profile.
func ValidateRunFile(doc []byte) error {
	return Validate("runfile", runFileSchema, doc)
}

// ValidateScrape checks a scrape request.
func ValidateScrape(doc []byte) error {
	return Validate("scrape", scrapeSchema, doc)
}

// Validate checks doc against schema. A malformed document is reported as
// *SchemaLoadError, a mismatch as *ValidationError.
func Validate(name, schema string, doc []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Name:    name,
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	// Build structured error
	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
