package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(correctIndexInRange, Question{})
	return v
}

// correctIndexInRange enforces 0 <= CorrectIndex < len(Options), which no single-field tag can express.
func correctIndexInRange(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	if q.CorrectIndex >= len(q.Options) {
		sl.ReportError(q.CorrectIndex, "CorrectIndex", "correctIndex", "optionindex", fmt.Sprint(len(q.Options)))
	}
}

// check runs the struct tags of v and reports the first failure as ErrValidation.
func check(subject string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		if f.Param() != "" {
			return fmt.Errorf("%w: %s: %s fails %s=%s (got %v)", ErrValidation, subject, f.Namespace(), f.Tag(), f.Param(), f.Value())
		}
		return fmt.Errorf("%w: %s: %s fails %s (got %v)", ErrValidation, subject, f.Namespace(), f.Tag(), f.Value())
	}
	return fmt.Errorf("%w: %s: %v", ErrValidation, subject, err)
}
