package serialization

import (
	"context"
	"encoding/json"
	"log/slog"

	validator "github.com/go-playground/validator/v10"
)

func Unmarshal(validate *validator.Validate, ctx context.Context, logger *slog.Logger, jsonBytes []byte, v any) error {
	err := json.Unmarshal(jsonBytes, v)
	if err != nil {
		return err
	}
	// now validate the unmarshalled data
	err = validate.StructCtx(ctx, v)
	if err != nil {
		validationErrors := err.(validator.ValidationErrors)
		for _, validationError := range validationErrors {
			logger.Info("Validation error", "field", validationError.Field(), "tag", validationError.Tag(), "value", validationError.Value())
		}
		return err
	}
	// if the validation is successful, return nil
	return nil
}
