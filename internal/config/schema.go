package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const schemaURL = "exchange.schema.json"

//go:embed schema/exchange.schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("разбор схемы конфигурации: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("регистрация схемы конфигурации: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// ValidateDocument проверяет YAML-документ конфигурации по встроенной схеме.
// Документ приводится к JSON, чтобы типы значений совпадали с ожиданиями схемы.
func ValidateDocument(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("разбор YAML: %w", err)
	}
	if doc == nil {
		return nil
	}

	asJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("преобразование YAML в JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(asJSON))
	if err != nil {
		return fmt.Errorf("преобразование YAML в JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}
