// Package storage provides the data persistence layer for the spice gateway.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-gateway/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrInvalidStatus     = errors.New("invalid audit status")
	ErrInvalidAuditEntry = errors.New("invalid audit record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateAuditRecord validates an audit record before it is written.
func validateAuditRecord(rec *model.AuditRecord) error {
	if rec.Module == "" {
		return fmt.Errorf("%w: module is required", ErrInvalidAuditEntry)
	}
	switch rec.Status {
	case model.AuditSuccess, model.AuditFallback, model.AuditCached, model.AuditRejected:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, rec.Status)
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidAuditEntry)
	}
	return nil
}
