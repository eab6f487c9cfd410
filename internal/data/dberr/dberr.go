// Package dberr classifies database failures independently of the driver.
package dberr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind is the coarse class of a database failure.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	KindConflict
	KindRetryable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRetryable:
		return "retryable"
	default:
		return "other"
	}
}

// Classify maps a gorm / pgx / sqlite error to a Kind. Postgres errors are
// matched by SQLSTATE; anything else falls back to the message text.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return KindConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindOther
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505": // unique_violation
			return KindConflict
		case "40001", "40P01", "55P03": // serialization_failure, deadlock, lock_not_available
			return KindRetryable
		}
		return KindOther
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint failed"):
		return KindConflict
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"):
		return KindRetryable
	}
	return KindOther
}

func IsConflict(err error) bool  { return Classify(err) == KindConflict }
func IsRetryable(err error) bool { return Classify(err) == KindRetryable }
