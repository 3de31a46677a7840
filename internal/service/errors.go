package service

import (
	"errors"
)

var (
	ErrInferenceUnavailable = errors.New("inference server unavailable")
	ErrInvalidChoice        = errors.New("invalid choice index")
	ErrInvalidInput         = errors.New("invalid input")
)

// DisplayError несет локализованное сообщение для клиента поверх сигнальной ошибки.
type DisplayError struct {
	Message string
	Err     error
}

func (e *DisplayError) Error() string { return e.Message }

func (e *DisplayError) Unwrap() error { return e.Err }

func displayError(err error, message string) error {
	return &DisplayError{Message: message, Err: err}
}

// DisplayMessage returns the client-facing message carried by err, if any.
func DisplayMessage(err error) (string, bool) {
	var de *DisplayError
	if errors.As(err, &de) {
		return de.Message, true
	}
	return "", false
}
