package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/pkg/apperr"
)

// Service answers existence and attribute lookups for reference data.
type Service interface {
	GetMember(ctx context.Context, id snowflake.ID) (*Member, error)
	GetPackage(ctx context.Context, id snowflake.ID) (*Package, error)
	DiscountTypeExists(ctx context.Context, name string) (bool, error)
}

var (
	ErrMemberNotFound  = apperr.NotFound("member_not_found")
	ErrPackageNotFound = apperr.NotFound("package_not_found")
	ErrPackageInactive = apperr.DomainRuleViolation("package_inactive")
	ErrNotATrainer     = apperr.DomainRuleViolation("member_is_not_a_trainer")
)
