package dberr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindOther},
		{"not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), KindNotFound},
		{"gorm duplicate", gorm.ErrDuplicatedKey, KindConflict},
		{"pg unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), KindConflict},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, KindRetryable},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, KindRetryable},
		{"pg fk", &pgconn.PgError{Code: "23503"}, KindOther},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.email"), KindConflict},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), KindRetryable},
		{"cancelled", context.Canceled, KindOther},
		{"other", errors.New("boom"), KindOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
	assert.True(t, IsConflict(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "55P03"}))
	assert.Equal(t, "retryable", KindRetryable.String())
}
