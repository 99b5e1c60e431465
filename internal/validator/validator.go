package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks deals and configuration blocks against their struct tags.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return &Validator{validate: v}
}

// ValidateStruct returns an error naming every failing field and rule, for
// example "validation failed: url: http_url; discountPercent: lte".
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation failed: %w", err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fe.Field()+": "+fe.Tag())
	}
	return fmt.Errorf("validation failed: %s: %w", strings.Join(parts, "; "), err)
}

// fieldName reports fields by the name operators see: the YAML key for
// config blocks, the stored name for deals.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"yaml", "firestore"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}
