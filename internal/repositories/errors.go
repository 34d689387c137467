package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the store reacts to.
const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// classify maps driver errors onto the package sentinels. duplicate is
// the sentinel a unique violation becomes for the calling repository.
func classify(op string, err error, duplicate error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, duplicate, pgErr.ConstraintName)
		case pgCheckViolation:
			return fmt.Errorf("%s: %w", op, ErrNegativeBalance)
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%s: %w: %s", op, ErrTransient, pgErr.Message)
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, duplicate)
	}
	if isTransientConnErr(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransientConnErr(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) {
		return true
	}
	// The caller's own deadline is not worth retrying.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifyUnit classifies failures raised outside a repository call, such
// as on commit. Errors already classified, or not from the driver, pass
// through unchanged.
func classifyUnit(err error) error {
	if err == nil || IsRetryable(err) || errors.Is(err, ErrNegativeBalance) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) || isTransientConnErr(err) {
		return classify("commit", err, ErrDuplicateKey)
	}
	return err
}
