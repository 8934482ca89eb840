package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorClass groups driver errors that callers react to the same way on
// every supported dialect.
type ErrorClass int

const (
	ErrorClassOther ErrorClass = iota
	// ErrorClassDuplicateKey is a unique index rejecting the write: a second
	// active membership, a taken trainer slot, a reused invoice number.
	ErrorClassDuplicateKey
	ErrorClassLockTimeout
	// ErrorClassSerialization covers serialization failures and deadlocks.
	ErrorClassSerialization
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassDuplicateKey:
		return "duplicate_key"
	case ErrorClassLockTimeout:
		return "lock_timeout"
	case ErrorClassSerialization:
		return "serialization"
	default:
		return "other"
	}
}

var (
	pgCodes = map[string]ErrorClass{
		"23505": ErrorClassDuplicateKey,
		"55P03": ErrorClassLockTimeout,
		"40001": ErrorClassSerialization,
		"40P01": ErrorClassSerialization,
	}
	mysqlCodes = map[uint16]ErrorClass{
		1062: ErrorClassDuplicateKey,
		1205: ErrorClassLockTimeout,
		1213: ErrorClassSerialization,
	}
)

// Classify maps err onto an ErrorClass. Postgres and MySQL are matched on
// their typed driver errors, sqlite on its message text.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorClassOther
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrorClassDuplicateKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgCodes[pgErr.Code]
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlCodes[myErr.Number]
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ErrorClassDuplicateKey
	case strings.Contains(msg, "database is locked"):
		return ErrorClassLockTimeout
	}
	return ErrorClassOther
}

func IsDuplicateKeyErr(err error) bool {
	return Classify(err) == ErrorClassDuplicateKey
}

// IsRetryable reports whether repeating the same unit of work may succeed.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case ErrorClassLockTimeout, ErrorClassSerialization:
		return true
	}
	return false
}
