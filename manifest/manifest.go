// Package manifest loads custom element definitions from YAML.
//
//	definitions:
//	  - name: user-card
//	    observedAttributes: [title]
//	    callbacks: [connectedCallback, attributeChangedCallback]
//
// Manifests are validated against an embedded JSON schema before they are used.
package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/agentflare-ai/go-jsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// Entry describes one custom element definition.
type Entry struct {
	Name               string   `yaml:"name" json:"name"`
	Extends            string   `yaml:"extends,omitempty" json:"extends,omitempty"`
	ObservedAttributes []string `yaml:"observedAttributes,omitempty" json:"observedAttributes,omitempty"`
	DisabledFeatures   []string `yaml:"disabledFeatures,omitempty" json:"disabledFeatures,omitempty"`
	FormAssociated     bool     `yaml:"formAssociated,omitempty" json:"formAssociated,omitempty"`
	Callbacks          []string `yaml:"callbacks,omitempty" json:"callbacks,omitempty"`
}

// Manifest is an ordered list of definitions.
type Manifest struct {
	Definitions []Entry `yaml:"definitions" json:"definitions"`
}

// ValidationError reports a manifest that does not match the schema.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest: invalid: %s", strings.Join(e.Messages, "; "))
}

var _ error = (*ValidationError)(nil)

// Schema returns the JSON schema manifests are validated against.
func Schema() (*jsonschema.Schema, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return nil, fmt.Errorf("manifest: failed to parse schema: %w", err)
	}
	return &schema, nil
}

// Load reads, validates and decodes a manifest.
func Load(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("manifest: read: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes a YAML (or JSON) manifest.
func Parse(data []byte) (*Manifest, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	// Round-trip through JSON so the validator sees JSON types.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest: normalize: %w", err)
	}
	var doc any
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("manifest: normalize: %w", err)
	}

	schema, err := Schema()
	if err != nil {
		return nil, err
	}
	result := jsonschema.ValidateDocument(doc, schema)
	if !result.Valid {
		var msgs []string
		for _, verr := range result.Errors {
			msgs = append(msgs, verr.Message)
		}
		if len(msgs) == 0 {
			msgs = []string{"does not match schema"}
		}
		return nil, &ValidationError{Messages: msgs}
	}

	var m Manifest
	if err := json.Unmarshal(normalized, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	slog.Debug("manifest: loaded", "definitions", len(m.Definitions))
	return &m, nil
}
