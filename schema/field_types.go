package schema

import "hermannm.dev/enumnames"

type FieldType uint8

const (
	FieldTypeText FieldType = iota + 1
	FieldTypeLongText
	FieldTypeInt
	FieldTypeFloat
	FieldTypeBool
	FieldTypeDate
	FieldTypeDateTime
	FieldTypeSelection
	FieldTypeRelation
	FieldTypeRelationList
	FieldTypeBinary
	FieldTypeUUID
)

var fieldTypeNames = enumnames.NewMap(map[FieldType]string{
	FieldTypeText:         "text",
	FieldTypeLongText:     "long_text",
	FieldTypeInt:          "integer",
	FieldTypeFloat:        "float",
	FieldTypeBool:         "boolean",
	FieldTypeDate:         "date",
	FieldTypeDateTime:     "datetime",
	FieldTypeSelection:    "selection",
	FieldTypeRelation:     "relation",
	FieldTypeRelationList: "relation_list",
	FieldTypeBinary:       "binary",
	FieldTypeUUID:         "uuid",
})

func (fieldType FieldType) IsValid() bool {
	return fieldTypeNames.ContainsEnumValue(fieldType)
}

func (fieldType FieldType) IsDate() bool {
	return fieldType == FieldTypeDate || fieldType == FieldTypeDateTime
}

func (fieldType FieldType) IsNumeric() bool {
	return fieldType == FieldTypeInt || fieldType == FieldTypeFloat
}

func (fieldType FieldType) String() string {
	return fieldTypeNames.GetNameOrFallback(fieldType, "INVALID_FIELD_TYPE")
}

func (fieldType FieldType) MarshalJSON() ([]byte, error) {
	return fieldTypeNames.MarshalToNameJSON(fieldType)
}

func (fieldType *FieldType) UnmarshalJSON(bytes []byte) error {
	return fieldTypeNames.UnmarshalFromNameJSON(bytes, fieldType)
}
