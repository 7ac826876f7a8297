package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/registry-v1.yaml
var schemaYAML []byte

var (
	compiledOnce   sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

// compiled converts the embedded YAML schema to JSON and compiles it once.
func compiled() (*gojsonschema.Schema, error) {
	compiledOnce.Do(func() {
		var schemaData interface{}
		if err := yaml.Unmarshal(schemaYAML, &schemaData); err != nil {
			compileErr = fmt.Errorf("parse registry schema: %w", err)
			return
		}
		jsonBytes, err := json.Marshal(schemaData)
		if err != nil {
			compileErr = fmt.Errorf("convert registry schema: %w", err)
			return
		}
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonBytes))
	})
	return compiledSchema, compileErr
}

// validate checks a decoded JSON document against the registry schema and returns
// every violation found; an empty slice means the document is well-formed.
func validate(doc interface{}) ([]Problem, error) {
	schema, err := compiled()
	if err != nil {
		return nil, err
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	problems := make([]Problem, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		field := verr.Field()
		if field == "" || field == "(root)" {
			field = "root"
		}
		problems = append(problems, Problem{Field: field, Message: verr.Description()})
	}
	return problems, nil
}
