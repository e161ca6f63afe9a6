package elasticsearch

import (
	"context"
	"sort"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"hermannm.dev/dashboard/schema"
)

func (elastic ElasticsearchDB) ListModels(ctx context.Context) ([]schema.ModelInfo, error) {
	response, err := elastic.client.Indices.GetMapping().Do(ctx)
	if err != nil {
		return nil, wrapElasticError(err, "failed to list indices")
	}

	models := make([]schema.ModelInfo, 0, len(response))
	for index := range response {
		// Dot-prefixed indices are Elasticsearch-internal
		if strings.HasPrefix(index, ".") || schema.IsTechnicalModel(index) {
			continue
		}
		models = append(models, schema.ModelInfo{Name: index, Model: index})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Model < models[j].Model })
	return models, nil
}

func (elastic ElasticsearchDB) GetModelSchema(
	ctx context.Context,
	model string,
) (schema.ModelSchema, error) {
	response, err := elastic.client.Indices.GetMapping().Index(model).Do(ctx)
	if err != nil {
		if isIndexNotFound(err) {
			return schema.ModelSchema{}, schema.ErrModelNotFound
		}
		return schema.ModelSchema{}, wrapElasticError(err, "failed to read index mapping")
	}

	record, exists := response[model]
	if !exists {
		return schema.ModelSchema{}, schema.ErrModelNotFound
	}

	modelSchema := schema.ModelSchema{Model: model, Name: model}
	// Document IDs are not part of the mapping
	modelSchema.Fields = append(modelSchema.Fields, schema.Field{
		Field:  "id",
		Name:   "id",
		Type:   schema.FieldTypeUUID,
		Label:  "id",
		Stored: true,
	})

	if record.Mappings.Properties != nil {
		fieldNames := make([]string, 0, len(record.Mappings.Properties))
		for fieldName := range record.Mappings.Properties {
			fieldNames = append(fieldNames, fieldName)
		}
		sort.Strings(fieldNames)

		for _, fieldName := range fieldNames {
			modelSchema.Fields = append(modelSchema.Fields, schema.Field{
				Field:  fieldName,
				Name:   fieldName,
				Type:   fieldTypeFromElasticProperty(record.Mappings.Properties[fieldName]),
				Label:  fieldName,
				Stored: true,
			})
		}
	}

	return modelSchema, nil
}

func fieldTypeFromElasticProperty(property types.Property) schema.FieldType {
	switch property.(type) {
	case *types.IntegerNumberProperty, *types.LongNumberProperty, *types.ShortNumberProperty:
		return schema.FieldTypeInt
	case *types.FloatNumberProperty, *types.DoubleNumberProperty:
		return schema.FieldTypeFloat
	case *types.BooleanProperty:
		return schema.FieldTypeBool
	case *types.DateProperty:
		return schema.FieldTypeDateTime
	case *types.KeywordProperty:
		return schema.FieldTypeText
	case *types.TextProperty:
		return schema.FieldTypeLongText
	default:
		return schema.FieldTypeText
	}
}
