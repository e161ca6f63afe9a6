// Package schema defines the model/field metadata boundary of the dashboard
// engine. A Provider introspects some backing data source and returns which
// models exist and what fields they have; the engine only ever sees these
// types, never the backing source directly.
package schema

import (
	"context"
	"errors"
	"slices"
	"strings"
)

// ErrModelNotFound is returned by Provider implementations when asked about a
// model they do not know.
var ErrModelNotFound = errors.New("model not found")

type Provider interface {
	// ListModels returns all models suitable for visualization, with technical
	// and transient models already filtered out (see IsTechnicalModel).
	ListModels(ctx context.Context) ([]ModelInfo, error)

	GetModelSchema(ctx context.Context, model string) (ModelSchema, error)
}

type ModelInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

type ModelSchema struct {
	Model     string
	Name      string
	Transient bool
	Fields    []Field
}

type Field struct {
	Field     string            `json:"field"`
	Name      string            `json:"name"`
	Type      FieldType         `json:"type"`
	Label     string            `json:"label"`
	Selection []SelectionOption `json:"selection,omitempty"`
	// Target model for relation fields.
	Relation string `json:"relation,omitempty"`
	// Non-stored computed fields cannot be grouped or aggregated on.
	Stored bool `json:"-"`
}

type SelectionOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (schema ModelSchema) Field(name string) (Field, bool) {
	for _, field := range schema.Fields {
		if field.Field == name {
			return field, true
		}
	}
	return Field{}, false
}

// Model name prefixes for bookkeeping/infrastructure models that are never
// interesting to visualize.
var technicalModelPrefixes = []string{
	"ir.", "base.", "bus.", "web.", "mail.", "auth.", "report.", "resource.", "wizard.", "_",
}

func IsTechnicalModel(model string) bool {
	for _, prefix := range technicalModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

var excludedFieldTypes = []FieldType{FieldTypeBinary, FieldTypeRelationList, FieldTypeLongText}

var excludedFieldNames = []string{"__last_update", "write_date", "write_uid", "create_uid"}

var excludedFieldPrefixes = []string{"message_", "activity_", "x_"}

// FilterFields removes fields that should not be exposed through the field
// metadata endpoint: binary/relation-collection/long-text fields, non-stored
// computed fields, and a fixed set of bookkeeping names and prefixes. The
// returned list is sorted by display name.
func FilterFields(fields []Field) []Field {
	filtered := make([]Field, 0, len(fields))

fieldLoop:
	for _, field := range fields {
		if slices.Contains(excludedFieldTypes, field.Type) {
			continue
		}
		if slices.Contains(excludedFieldNames, field.Field) {
			continue
		}
		for _, prefix := range excludedFieldPrefixes {
			if strings.HasPrefix(field.Field, prefix) {
				continue fieldLoop
			}
		}
		if !field.Stored {
			continue
		}

		filtered = append(filtered, field)
	}

	slices.SortFunc(filtered, func(field1 Field, field2 Field) int {
		return strings.Compare(field1.Name, field2.Name)
	})
	return filtered
}
