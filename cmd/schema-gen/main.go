// Schema Generator
//
// Generates JSON Schema files from the Go API types so clients can validate
// search responses. Go is the source of truth for the wire format.
//
// Usage:
//
//	go run ./cmd/schema-gen [output-dir]
//
// Output:
//
//	schemas/search.json
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/silverpoint/price-search/internal/handlers"
	"github.com/silverpoint/price-search/internal/types"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

func main() {
	outputDir := "schemas"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, group := range schemaGroups() {
		schema := generateGroupSchema(group)
		outputPath := filepath.Join(outputDir, group.Output)

		if err := writeSchema(schema, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}

		fmt.Printf("Generated %s\n", outputPath)
	}

	fmt.Println("Schema generation complete!")
}

func schemaGroups() []SchemaGroup {
	return []SchemaGroup{
		{
			Name: "search",
			Types: []any{
				// Request types
				handlers.SearchRequest{},
				// Response types
				types.SearchResult{},
				types.StoreLocation{},
				handlers.HealthResponse{},
			},
			Output: "search.json",
		},
	}
}

// newReflector returns a reflector that renders Money as a decimal number
func newReflector() *jsonschema.Reflector {
	moneyType := reflect.TypeOf(types.Money(0))
	return &jsonschema.Reflector{
		DoNotReference: false,
		ExpandedStruct: false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == moneyType {
				return &jsonschema.Schema{
					Type:        "number",
					Description: "Amount in dollars with two decimal places",
				}
			}
			return nil
		},
	}
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := newReflector()

	definitions := make(map[string]any)

	for _, t := range group.Types {
		schema := reflector.Reflect(t)

		typeName := ""
		if schema.Ref != "" {
			// "#/$defs/SearchResult" -> "SearchResult"
			typeName = filepath.Base(schema.Ref)
		}

		for name, def := range schema.Definitions {
			definitions[name] = def
		}

		if typeName != "" && schema.Definitions[typeName] != nil {
			definitions[typeName] = schema.Definitions[typeName]
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://silverpoint.dev/schemas/%s.json", group.Name),
		"title":       fmt.Sprintf("%s API Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for %s API types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

// writeSchema writes a schema to a JSON file
func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
