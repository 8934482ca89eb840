package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/pkg/apperr"
)

type Service interface {
	CheckIn(ctx context.Context, memberID, branchID snowflake.ID) (*CheckIn, error)
	CheckOut(ctx context.Context, id snowflake.ID) (*CheckIn, error)
	Get(ctx context.Context, id snowflake.ID) (*CheckIn, error)
	// AutoCheckOut closes a check-in still open; false when it was already closed.
	AutoCheckOut(ctx context.Context, id snowflake.ID) (bool, error)
	ListOpenBefore(ctx context.Context, before time.Time, afterID snowflake.ID, limit int) ([]CheckIn, error)
}

var (
	ErrCheckInNotFound   = apperr.NotFound("check_in_not_found")
	ErrAlreadyCheckedIn  = apperr.Conflict("already_checked_in")
	ErrAlreadyCheckedOut = apperr.Conflict("already_checked_out")
	ErrWrongBranch       = apperr.DomainRuleViolation("subscription_not_valid_at_branch")
)
