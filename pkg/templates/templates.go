// Package templates reads and writes flow template documents in JSON or YAML.
// Documents are checked against a JSON schema before being decoded into a
// models.FlowTemplate.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/flowops/pkg/flowops"
	"github.com/dukex/flowops/pkg/models"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a template document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported template format")
	ErrInvalidDocument   = errors.New("invalid template document")
)

// FormatFromPath picks the format from a file extension; anything that is not
// .yaml or .yml is JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and decodes the template stored at path.
func Load(path string) (models.FlowTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.FlowTemplate{}, fmt.Errorf("failed to read template %s: %w", path, err)
	}

	return Decode(data, FormatFromPath(path))
}

// Decode parses, schema-checks and validates a template document.
func Decode(data []byte, format Format) (models.FlowTemplate, error) {
	document, err := parse(data, format)
	if err != nil {
		return models.FlowTemplate{}, err
	}

	if err := ValidateDocument(document); err != nil {
		return models.FlowTemplate{}, err
	}

	normalized, err := json.Marshal(document)
	if err != nil {
		return models.FlowTemplate{}, fmt.Errorf("failed to normalize template: %w", err)
	}

	var template models.FlowTemplate
	if err := json.Unmarshal(normalized, &template); err != nil {
		return models.FlowTemplate{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if template.SchemaVersion == "" {
		template.SchemaVersion = models.TemplateSchemaVersion
	}

	if err := models.Validator().Struct(template); err != nil {
		return models.FlowTemplate{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return template, nil
}

func parse(data []byte, format Format) (any, error) {
	var document any

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}

		document = normalizeYAML(document)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return document, nil
}

// normalizeYAML turns non-string-keyed mappings into JSON-compatible maps.
func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeYAML(item)
		}

		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}

		return out
	case []any:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}

		return v
	default:
		return v
	}
}

// ValidateDocument checks a decoded document against the template schema.
func ValidateDocument(document any) error {
	schemaLoader := gojsonschema.NewGoLoader(documentSchema)
	dataLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(problems, "; "))
	}

	return nil
}

// Encode writes template in the given format.
func Encode(template models.FlowTemplate, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(template, "", "  ")
	case FormatYAML:
		data, err := json.Marshal(template)
		if err != nil {
			return nil, err
		}

		var document any
		if err := json.Unmarshal(data, &document); err != nil {
			return nil, err
		}

		return yaml.Marshal(document)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Plan returns the operations that rebuild the template's tree from an empty flow.
func Plan(template models.FlowTemplate) ([]models.Operation, error) {
	return flowops.ImportOperations(template.Trigger, template.Steps)
}

// Instantiate builds a new draft flow version holding the template's tree.
func Instantiate(id, flowID string, template models.FlowTemplate) (*models.FlowVersion, error) {
	flow := models.NewFlowVersion(id, flowID, template.DisplayName)

	return flowops.Apply(flow, template.ImportRequest())
}
