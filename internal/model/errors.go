package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition возвращается, если действие недопустимо в текущем состоянии.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidInput возвращается при некорректных входных данных (отрицательная цена, неизвестное значение перечисления).
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfigurationDefect возвращается, если справочные таблицы неполны или противоречивы.
	ErrConfigurationDefect = errors.New("configuration defect")
)

// InvalidTransitionError содержит статус и действие, которое не удалось применить.
type InvalidTransitionError struct {
	Status string
	Action string
	Reason string
}

// Error реализует интерфейс error.
func (e *InvalidTransitionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid transition: %s from %s", e.Action, e.Status)
	}
	return fmt.Sprintf("invalid transition: %s from %s: %s", e.Action, e.Status, e.Reason)
}

// Is позволяет сравнивать ошибку с ErrInvalidTransition через errors.Is.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// InvalidInput оборачивает ErrInvalidInput пояснением.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
