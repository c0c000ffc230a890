package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed weasel.schema.json
var weaselSchema []byte

const weaselSchemaURL = "weasel.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(weaselSchemaURL, bytes.NewReader(weaselSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(weaselSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ValidateStore checks the effective configuration of s against the weasel
// schema. Violations are returned as a *jsonschema.ValidationError.
func ValidateStore(s *Store) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	doc, err := s.Document()
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}

// ValidateDocument parses a weasel.yaml document and validates it.
func ValidateDocument(data []byte) error {
	s, err := ParseStore("weasel", data)
	if err != nil {
		return err
	}
	return ValidateStore(s)
}

// ValidateFile validates the YAML document at path.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return ValidateDocument(data)
}
