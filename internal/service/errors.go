package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNoSelectionBase ranking requested before any selection base exists
	ErrNoSelectionBase = errors.New("no selection base available, create a selection first")

	// ErrSelectionNotFound unknown selection base id
	ErrSelectionNotFound = errors.New("selection base not found")

	// ErrRankingNotFound unknown ranking id
	ErrRankingNotFound = errors.New("ranking not found")

	// ErrCompanyNotFound unknown company id
	ErrCompanyNotFound = errors.New("company not found")
)

// ValidationError request rejected before any query ran
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PersistenceError database failure inside an atomic write; nothing was changed
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// validationFromTags converts validator output to a ValidationError naming the first bad field
func validationFromTags(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Message: "is required"}
	case "oneof":
		return &ValidationError{Field: field, Message: "must be one of " + fe.Param()}
	case "gte", "min":
		return &ValidationError{Field: field, Message: "must be >= " + fe.Param()}
	case "max":
		return &ValidationError{Field: field, Message: "must be at most " + fe.Param() + " characters"}
	}
	return &ValidationError{Field: field, Message: "is invalid (" + fe.Tag() + ")"}
}

// newValidator reports json field names in validation errors
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}
