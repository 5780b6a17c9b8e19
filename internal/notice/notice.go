// Package notice carries short user-facing messages about the outcome of an operation.
package notice

import (
	apperrors "comanda/internal/errors"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func Success(message string) Notice {
	return Notice{Level: LevelSuccess, Message: message}
}

func Info(message string) Notice {
	return Notice{Level: LevelInfo, Message: message}
}

// Failure describes a failed operation in domain terms followed by the underlying error text.
func Failure(operation string, err error) Notice {
	msg := operation
	if err != nil {
		msg += ". Detail: " + err.Error()
	}
	return Notice{Level: LevelError, Message: msg}
}

// Notifier delivers notices to whoever is watching.
type Notifier interface {
	Notify(n Notice)
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(Notice) {}

// ForError picks the notice for a refused or failed operation. Refusals (validation, conflict,
// not found) are informational; anything else is reported as a failure of operation.
func ForError(operation string, err error) Notice {
	if _, ok := apperrors.IsValidationError(err); ok {
		return Info(err.Error())
	}
	if _, ok := apperrors.IsConflictError(err); ok {
		return Info(err.Error())
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return Info(err.Error())
	}
	return Failure(operation, err)
}
