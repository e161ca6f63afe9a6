package elasticsearch

import (
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"hermannm.dev/dashboard/db"
)

// filterToElasticQuery translates a filter to the bool query it corresponds
// to: conditions go in 'must', with multi-term conditions as nested 'should'
// queries. Returns nil for the empty filter (match all).
func filterToElasticQuery(filter db.Filter) (*types.Query, error) {
	if filter.IsEmpty() {
		return nil, nil
	}

	boolQuery := types.NewBoolQuery()
	for _, condition := range filter.Conditions {
		if len(condition.Terms) == 1 {
			termQuery, err := termToElasticQuery(condition.Terms[0])
			if err != nil {
				return nil, err
			}
			boolQuery.Must = append(boolQuery.Must, termQuery)
			continue
		}

		orQuery := types.NewBoolQuery()
		for _, term := range condition.Terms {
			termQuery, err := termToElasticQuery(term)
			if err != nil {
				return nil, err
			}
			orQuery.Should = append(orQuery.Should, termQuery)
		}
		boolQuery.Must = append(boolQuery.Must, types.Query{Bool: orQuery})
	}

	return &types.Query{Bool: boolQuery}, nil
}

func termToElasticQuery(term db.Term) (types.Query, error) {
	switch term.Operator {
	case db.OperatorEquals:
		return types.Query{
			Term: map[string]types.TermQuery{term.Field: {Value: term.Value}},
		}, nil

	case db.OperatorNotEquals:
		negated := types.NewBoolQuery()
		negated.MustNot = append(negated.MustNot, types.Query{
			Term: map[string]types.TermQuery{term.Field: {Value: term.Value}},
		})
		return types.Query{Bool: negated}, nil

	case db.OperatorGreaterThan, db.OperatorGreaterOrEqual,
		db.OperatorLessThan, db.OperatorLessOrEqual:
		return rangeToElasticQuery(term)

	case db.OperatorLike, db.OperatorILike:
		pattern := fmt.Sprint(term.Value)
		if strings.ContainsRune(pattern, '%') {
			pattern = strings.ReplaceAll(pattern, "%", "*")
		} else {
			pattern = "*" + pattern + "*"
		}
		caseInsensitive := term.Operator == db.OperatorILike
		return types.Query{
			Wildcard: map[string]types.WildcardQuery{
				term.Field: {Value: &pattern, CaseInsensitive: &caseInsensitive},
			},
		}, nil

	case db.OperatorIn, db.OperatorNotIn:
		values, isList := term.Value.([]any)
		if !isList {
			values = []any{term.Value}
		}
		fieldValues := make([]types.FieldValue, len(values))
		for i, value := range values {
			fieldValues[i] = value
		}
		inQuery := types.Query{
			Terms: &types.TermsQuery{
				TermsQuery: map[string]types.TermsQueryField{term.Field: fieldValues},
			},
		}
		if term.Operator == db.OperatorIn {
			return inQuery, nil
		}
		negated := types.NewBoolQuery()
		negated.MustNot = append(negated.MustNot, inQuery)
		return types.Query{Bool: negated}, nil

	default:
		return types.Query{}, fmt.Errorf("unrecognized operator '%v'", term.Operator)
	}
}

func rangeToElasticQuery(term db.Term) (types.Query, error) {
	if number, isNumber := numericBound(term.Value); isNumber {
		rangeQuery := types.NewNumberRangeQuery()
		switch term.Operator {
		case db.OperatorGreaterThan:
			rangeQuery.Gt = &number
		case db.OperatorGreaterOrEqual:
			rangeQuery.Gte = &number
		case db.OperatorLessThan:
			rangeQuery.Lt = &number
		case db.OperatorLessOrEqual:
			rangeQuery.Lte = &number
		default:
			return types.Query{}, fmt.Errorf("'%v' is not a range operator", term.Operator)
		}
		return types.Query{Range: map[string]types.RangeQuery{term.Field: rangeQuery}}, nil
	}

	// Non-numeric bounds (dates and their label formats) go through a date
	// range query, which Elasticsearch parses against the field's date format
	rangeQuery := types.NewDateRangeQuery()
	bound := fmt.Sprint(term.Value)

	switch term.Operator {
	case db.OperatorGreaterThan:
		rangeQuery.Gt = &bound
	case db.OperatorGreaterOrEqual:
		rangeQuery.Gte = &bound
	case db.OperatorLessThan:
		rangeQuery.Lt = &bound
	case db.OperatorLessOrEqual:
		rangeQuery.Lte = &bound
	default:
		return types.Query{}, fmt.Errorf("'%v' is not a range operator", term.Operator)
	}

	return types.Query{Range: map[string]types.RangeQuery{term.Field: rangeQuery}}, nil
}

func numericBound(value any) (types.Float64, bool) {
	switch number := value.(type) {
	case float64:
		return types.Float64(number), true
	case float32:
		return types.Float64(number), true
	case int:
		return types.Float64(number), true
	case int64:
		return types.Float64(number), true
	default:
		return 0, false
	}
}
