/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: definition.go
Description: Matcher definitions for the Akaylee Profiler. Definitions are plain data loaded
from YAML: the built-in set is embedded in the binary and callers can load more from a
plugin file.
*/

package semantic

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinDefinitions []byte

// HeaderRegExp scores field names that match an expression
type HeaderRegExp struct {
	Regexp     string `yaml:"regexp" json:"regexp"`
	Confidence int    `yaml:"confidence" json:"confidence"` // -100..100
}

// Definition describes one semantic type
type Definition struct {
	SemanticType  string         `yaml:"semanticType" json:"semanticType"`
	Description   string         `yaml:"description" json:"description"`
	Kind          string         `yaml:"kind" json:"kind"`                               // finite, infinite or regex
	BaseType      string         `yaml:"baseType" json:"baseType"`
	Validator     string         `yaml:"validator,omitempty" json:"validator,omitempty"` // Registry key for infinite matchers
	Priority      int            `yaml:"priority" json:"priority"`                       // Lower runs first
	Threshold     int            `yaml:"threshold,omitempty" json:"threshold,omitempty"` // 0 uses the configured plugin threshold
	Regexp        string         `yaml:"regexp,omitempty" json:"regexp,omitempty"`
	Members       []string       `yaml:"members,omitempty" json:"members,omitempty"`
	Minimum       string         `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum       string         `yaml:"maximum,omitempty" json:"maximum,omitempty"`
	Backout       string         `yaml:"backout,omitempty" json:"backout,omitempty"`
	HeaderRegExps []HeaderRegExp `yaml:"headerRegExps,omitempty" json:"headerRegExps,omitempty"`
}

// Validate checks the fields every definition needs
func (d Definition) Validate() error {
	if d.SemanticType == "" {
		return fmt.Errorf("definition is missing semanticType")
	}
	kind, err := ParseKind(d.Kind)
	if err != nil {
		return fmt.Errorf("definition %s: %w", d.SemanticType, err)
	}
	switch kind {
	case Finite:
		if len(d.Members) == 0 {
			return fmt.Errorf("definition %s: finite matcher needs members", d.SemanticType)
		}
	case RegexMatch:
		if d.Regexp == "" {
			return fmt.Errorf("definition %s: regex matcher needs a regexp", d.SemanticType)
		}
	}
	for _, h := range d.HeaderRegExps {
		if h.Confidence < -100 || h.Confidence > 100 {
			return fmt.Errorf("definition %s: header confidence %d out of range", d.SemanticType, h.Confidence)
		}
	}
	return nil
}

// ParseDefinitions decodes a YAML list of definitions
func ParseDefinitions(data []byte) ([]Definition, error) {
	var defs []Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// ReadDefinitions decodes definitions from a reader
func ReadDefinitions(r io.Reader) ([]Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}
	return ParseDefinitions(data)
}

// LoadDefinitions decodes definitions from a YAML file
func LoadDefinitions(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open definitions: %w", err)
	}
	defer f.Close()
	return ReadDefinitions(f)
}

// BuiltinDefinitions returns the embedded default definitions
func BuiltinDefinitions() []Definition {
	defs, err := ParseDefinitions(builtinDefinitions)
	if err != nil {
		panic(fmt.Sprintf("embedded definitions are invalid: %v", err))
	}
	return defs
}
