package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE undefined_column.
const pgUndefinedColumn = "42703"

// MissingFieldError reports a write rejected because a column has not been
// provisioned in this environment.
type MissingFieldError struct {
	Field string
	Err   error
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %q does not exist: %v", e.Field, e.Err)
}

func (e *MissingFieldError) Unwrap() error { return e.Err }

// IsMissingField reports whether err is a rejection for the named field.
// Typed errors are checked first; the text match covers drivers and proxies
// that only hand back a message.
func IsMissingField(err error, field string) bool {
	if err == nil {
		return false
	}

	var mf *MissingFieldError
	if errors.As(err, &mf) {
		return mf.Field == field
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedColumn {
		return strings.Contains(pgErr.Message, field)
	}

	msg := strings.ToLower(err.Error())
	f := strings.ToLower(field)
	switch {
	case strings.Contains(msg, fmt.Sprintf(`column "%s" of relation`, f)) && strings.Contains(msg, "does not exist"):
		return true
	case strings.Contains(msg, fmt.Sprintf("could not find the '%s' column", f)):
		return true
	case strings.Contains(msg, f) && strings.Contains(msg, "does not exist"):
		return true
	}
	return false
}

// ClassifyWriteError wraps undefined-column failures for the given optional fields.
func ClassifyWriteError(err error, optionalFields ...string) error {
	if err == nil {
		return nil
	}
	for _, f := range optionalFields {
		if IsMissingField(err, f) {
			return &MissingFieldError{Field: f, Err: err}
		}
	}
	return err
}
