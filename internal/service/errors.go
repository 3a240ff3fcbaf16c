package service

import (
	"errors"
	"fmt"
	"strings"

	"crackers-backend/internal/store"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrLocked            = errors.New("account locked")
	ErrInvalidState      = errors.New("invalid state")
)

// StockError lists every line that could not be satisfied.
type StockError struct {
	Details []string
}

func (e *StockError) Error() string {
	return "insufficient stock: " + strings.Join(e.Details, "; ")
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func stateError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func missing(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// lookup turns store.ErrNotFound into a named service error and passes anything else through.
func lookup(what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return missing(what)
	}
	return err
}

func parseID(what, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, invalid("invalid %s id", what)
	}
	return id, nil
}

// checked converts validator errors into ErrValidation with a readable field list.
func checked(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return invalid("invalid fields: %s", strings.Join(fields, ", "))
	}
	return invalid("%v", err)
}
