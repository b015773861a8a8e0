// Package load reads object models from YAML documents and binary
// snapshots.
//
// A document lists types and associations. Types are referenced by name
// and the built-in primitives (boolean, integer, real, string, object)
// resolve without being declared. Elements declared without an ID get a
// stable UUID derived from the model name and their qualified name, so
// loading the same document twice yields the same IDs.
package load

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is a model as it is written in YAML and in snapshots.
type Document struct {
	Name         string         `yaml:"name" msgpack:"name"`
	Types        []*Type        `yaml:"types,omitempty" msgpack:"types,omitempty"`
	Associations []*Association `yaml:"associations,omitempty" msgpack:"associations,omitempty"`
}

// Type is a declared type.
type Type struct {
	ID   string `yaml:"id,omitempty" msgpack:"id,omitempty"`
	Name string `yaml:"name" msgpack:"name"`
	// Kind is one of class, datatype, enum and primitive. Empty means class.
	Kind string `yaml:"kind,omitempty" msgpack:"kind,omitempty"`
	// Primitive names the built-in primitive a primitive type stands for.
	// Primitives without it map to their own name.
	Primitive  string       `yaml:"primitive,omitempty" msgpack:"primitive,omitempty"`
	Base       string       `yaml:"base,omitempty" msgpack:"base,omitempty"`
	Literals   []string     `yaml:"literals,omitempty" msgpack:"literals,omitempty"`
	Attributes []*Attribute `yaml:"attributes,omitempty" msgpack:"attributes,omitempty"`
}

// Attribute is an owned attribute of a type.
type Attribute struct {
	ID   string `yaml:"id,omitempty" msgpack:"id,omitempty"`
	Name string `yaml:"name" msgpack:"name"`
	Type string `yaml:"type" msgpack:"type"`
	// Multiplicity defaults to exactly one.
	Multiplicity string `yaml:"multiplicity,omitempty" msgpack:"multiplicity,omitempty"`
	Identity     bool   `yaml:"identity,omitempty" msgpack:"identity,omitempty"`
	// Aggregation is one of none, shared and composite.
	Aggregation string `yaml:"aggregation,omitempty" msgpack:"aggregation,omitempty"`
}

// Association is a binary association between two types.
type Association struct {
	ID   string `yaml:"id,omitempty" msgpack:"id,omitempty"`
	Name string `yaml:"name,omitempty" msgpack:"name,omitempty"`
	Ends []*End `yaml:"ends" msgpack:"ends"`
}

// End is a member end of an association. Type is the type on the other
// side; Owner, when set, makes the end an attribute of that type.
type End struct {
	ID           string `yaml:"id,omitempty" msgpack:"id,omitempty"`
	Name         string `yaml:"name,omitempty" msgpack:"name,omitempty"`
	Type         string `yaml:"type" msgpack:"type"`
	Multiplicity string `yaml:"multiplicity,omitempty" msgpack:"multiplicity,omitempty"`
	Owner        string `yaml:"owner,omitempty" msgpack:"owner,omitempty"`
	Aggregation  string `yaml:"aggregation,omitempty" msgpack:"aggregation,omitempty"`
}

// UnmarshalDocument decodes a YAML document. Unknown keys are rejected.
func UnmarshalDocument(buf []byte) (*Document, error) {
	doc := &Document{}
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewLoadError("", "empty document", nil)
		}
		return nil, NewLoadError("", "malformed document", err)
	}
	return doc, nil
}

// MarshalDocument encodes the document to YAML.
func MarshalDocument(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
