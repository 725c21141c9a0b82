package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
)

var (
	ErrValidation = errors.New("aggregate validation")
	// ErrConflict marks a lost race: the row changed between read and write.
	ErrConflict = errors.New("aggregate conflict")
	// ErrRetryable marks a failure that did not commit and may succeed if re-run.
	ErrRetryable = errors.New("aggregate retryable")
)

func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

// pgCodes classifies the SQLSTATEs a lifecycle write can hit on Postgres.
var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,   // unique_violation: two appends raced for the same seq
	"23503": domainagg.CodeValidation, // foreign_key_violation
	"40001": domainagg.CodeRetryable,  // serialization_failure
	"40P01": domainagg.CodeRetryable,  // deadlock_detected
	"55P03": domainagg.CodeRetryable,  // lock_not_available
	"57014": domainagg.CodeRetryable,  // query_canceled (statement_timeout)
}

// sqliteMessages classifies SQLite failures, which only surface as text.
var sqliteMessages = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"unique constraint failed", domainagg.CodeConflict},
	{"foreign key constraint failed", domainagg.CodeValidation},
	{"database is locked", domainagg.CodeRetryable},
	{"database table is locked", domainagg.CodeRetryable},
	{"sqlite_busy", domainagg.CodeRetryable},
}

// MapError classifies err into an aggregate error code. Errors that already
// carry a code pass through unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.CodeValidation
	case errors.Is(err, ErrConflict):
		return domainagg.CodeConflict
	case errors.Is(err, ErrRetryable):
		return domainagg.CodeRetryable
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.CodeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.CodeRetryable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
		return domainagg.CodeInternal
	}

	msg := strings.ToLower(err.Error())
	for _, m := range sqliteMessages {
		if strings.Contains(msg, m.fragment) {
			return m.code
		}
	}
	return domainagg.CodeInternal
}
