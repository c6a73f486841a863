// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

var (
	validate *validator.Validate
	once     sync.Once
)

type enum interface {
	Valid() bool
}

// instance возвращает синглтон-экземпляр валидатора с тегом enum для доменных перечислений.
func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
			v, ok := fl.Field().Interface().(enum)
			return ok && v.Valid()
		})
	})
	return validate
}

// Struct проверяет структуру по тегам и возвращает ошибку, совместимую с model.ErrInvalidInput.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
}

// IsValidID проверяет, что идентификатор является UUID.
func IsValidID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
