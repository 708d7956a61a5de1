package sources

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/synonyms.schema.json
var synonymsSchema []byte

const synonymsSchemaURL = "https://stacklok.com/schemas/synonym-exporter/synonyms.json"

var (
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
	compiledSchemaOnce sync.Once
)

func recordSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(synonymsSchema))
		if err != nil {
			compiledSchemaErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(synonymsSchemaURL, doc); err != nil {
			compiledSchemaErr = fmt.Errorf("failed to load embedded schema: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = c.Compile(synonymsSchemaURL)
	})
	return compiledSchema, compiledSchemaErr
}

// validateDocument checks a decoded document against the record schema.
// The document is normalized through JSON so YAML and TOML decodings validate the same way.
func validateDocument(doc any) error {
	sch, err := recordSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize document: %w", err)
	}
	normalized, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to normalize document: %w", err)
	}

	if err := sch.Validate(normalized); err != nil {
		return fmt.Errorf("document does not match the synonyms schema: %w", err)
	}
	return nil
}
