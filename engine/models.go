package engine

import (
	"context"

	"hermannm.dev/dashboard/schema"
)

func (core Core) GetModels(ctx context.Context) ([]schema.ModelInfo, error) {
	return core.schemas.ListModels(ctx)
}

func (core Core) GetModelFields(ctx context.Context, model string) ([]schema.Field, error) {
	modelSchema, err := core.schemas.GetModelSchema(ctx, model)
	if err != nil {
		return nil, err
	}
	return schema.FilterFields(modelSchema.Fields), nil
}
