package clickhouse

import (
	"context"
	"strings"

	"hermannm.dev/dashboard/schema"
	"hermannm.dev/wrap"
)

func (clickhouse ClickHouseDB) ListModels(ctx context.Context) ([]schema.ModelInfo, error) {
	rows, err := clickhouse.conn.Query(
		ctx,
		"SELECT name FROM system.tables WHERE database = ? ORDER BY name",
		clickhouse.database,
	)
	if err != nil {
		return nil, wrap.Error(err, "failed to list tables")
	}
	defer rows.Close()

	var models []schema.ModelInfo
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, wrap.Error(err, "failed to scan table name")
		}
		if schema.IsTechnicalModel(table) {
			continue
		}
		models = append(models, schema.ModelInfo{Name: table, Model: table})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(err, "failed to read table names")
	}
	return models, nil
}

func (clickhouse ClickHouseDB) GetModelSchema(
	ctx context.Context,
	model string,
) (schema.ModelSchema, error) {
	rows, err := clickhouse.conn.Query(
		ctx,
		"SELECT name, type FROM system.columns WHERE database = ? AND table = ? ORDER BY position",
		clickhouse.database, model,
	)
	if err != nil {
		return schema.ModelSchema{}, wrap.Error(err, "failed to read table columns")
	}
	defer rows.Close()

	modelSchema := schema.ModelSchema{Model: model, Name: model}
	for rows.Next() {
		var columnName, columnType string
		if err := rows.Scan(&columnName, &columnType); err != nil {
			return schema.ModelSchema{}, wrap.Error(err, "failed to scan column")
		}

		fieldType, selection := fieldTypeFromColumnType(columnType)
		modelSchema.Fields = append(modelSchema.Fields, schema.Field{
			Field:     columnName,
			Name:      columnName,
			Type:      fieldType,
			Label:     columnName,
			Selection: selection,
			Stored:    true,
		})
	}
	if err := rows.Err(); err != nil {
		return schema.ModelSchema{}, wrap.Error(err, "failed to read columns")
	}

	if len(modelSchema.Fields) == 0 {
		return schema.ModelSchema{}, schema.ErrModelNotFound
	}
	return modelSchema, nil
}

// fieldTypeFromColumnType maps a ClickHouse column type to the engine's field
// vocabulary. Enum columns become selection fields with their declared
// options.
// See https://clickhouse.com/docs/en/sql-reference/data-types
func fieldTypeFromColumnType(
	columnType string,
) (schema.FieldType, []schema.SelectionOption) {
	columnType = unwrapColumnType(columnType)

	switch {
	case strings.HasPrefix(columnType, "Enum"):
		return schema.FieldTypeSelection, parseEnumOptions(columnType)
	case strings.HasPrefix(columnType, "Array"):
		return schema.FieldTypeRelationList, nil
	case strings.HasPrefix(columnType, "Int"), strings.HasPrefix(columnType, "UInt"):
		return schema.FieldTypeInt, nil
	case strings.HasPrefix(columnType, "Float"), strings.HasPrefix(columnType, "Decimal"):
		return schema.FieldTypeFloat, nil
	case columnType == "Bool":
		return schema.FieldTypeBool, nil
	case columnType == "Date", columnType == "Date32":
		return schema.FieldTypeDate, nil
	case strings.HasPrefix(columnType, "DateTime"):
		return schema.FieldTypeDateTime, nil
	case columnType == "UUID":
		return schema.FieldTypeUUID, nil
	default:
		return schema.FieldTypeText, nil
	}
}

func unwrapColumnType(columnType string) string {
	for _, wrapper := range []string{"Nullable(", "LowCardinality("} {
		if strings.HasPrefix(columnType, wrapper) && strings.HasSuffix(columnType, ")") {
			columnType = strings.TrimSuffix(strings.TrimPrefix(columnType, wrapper), ")")
			// Wrappers nest, in either order
			return unwrapColumnType(columnType)
		}
	}
	return columnType
}

// parseEnumOptions extracts the values from a column type like
// "Enum8('draft' = 1, 'paid' = 2)".
func parseEnumOptions(columnType string) []schema.SelectionOption {
	openParen := strings.IndexRune(columnType, '(')
	closeParen := strings.LastIndexByte(columnType, ')')
	if openParen == -1 || closeParen <= openParen {
		return nil
	}

	var options []schema.SelectionOption
	for _, entry := range strings.Split(columnType[openParen+1:closeParen], ",") {
		name, _, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		name = strings.Trim(strings.TrimSpace(name), "'")
		options = append(options, schema.SelectionOption{Value: name, Label: name})
	}
	return options
}
