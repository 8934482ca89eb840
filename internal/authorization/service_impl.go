// Package authorization decides which roles may run administrative operations.
// Policies live in casbin_rule and are seeded on start.
package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	"github.com/smallbiznis/gymcore/pkg/apperr"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectSubscription = "subscription"
	ObjectPayment      = "payment"
	ObjectDiscount     = "discount"
	ObjectBooking      = "booking"
	ObjectCheckIn      = "checkin"
	ObjectReconciler   = "reconciler"
)

const (
	ActionSubscriptionView         = "subscription.view"
	ActionSubscriptionCreate       = "subscription.create"
	ActionSubscriptionChangeStatus = "subscription.change_status"
	ActionSubscriptionRenew        = "subscription.renew"
	ActionSubscriptionSuspend      = "subscription.suspend"
	ActionSubscriptionUnsuspend    = "subscription.unsuspend"

	ActionPaymentCreate   = "payment.create"
	ActionPaymentComplete = "payment.complete"
	ActionPaymentFail     = "payment.fail"
	ActionPaymentView     = "payment.view"

	ActionDiscountManage = "discount.manage"
	ActionDiscountApply  = "discount.apply"

	ActionBookingRequest = "booking.request"
	ActionBookingConfirm = "booking.confirm"
	ActionBookingReject  = "booking.reject"

	ActionCheckInCreate = "checkin.create"

	ActionReconcilerRun = "reconciler.run"
)

// SystemActor is the subject used by internal callers.
const SystemActor = "system"

var (
	ErrInvalidActor  = apperr.Unauthorized("invalid_actor")
	ErrInvalidObject = apperr.Validation("invalid_authorization_object")
	ErrInvalidAction = apperr.Validation("invalid_authorization_action")
	ErrForbidden     = apperr.Forbidden("forbidden")
)

type Service interface {
	// Authorize checks actor ("system" or "member:<id>") against object/action.
	Authorize(ctx context.Context, actor, object, action string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Catalog  catalogdomain.Service
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	catalog  catalogdomain.Service
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		catalog:  p.Catalog,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor, object, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor)
	if err != nil {
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization.denied",
			zap.String("actor", subject),
			zap.String("role", roleName),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string) (string, string, error) {
	if actor == SystemActor {
		return actor, "role:system", nil
	}
	if !strings.HasPrefix(actor, "member:") {
		return "", "", ErrInvalidActor
	}
	memberID, err := snowflake.ParseString(strings.TrimPrefix(actor, "member:"))
	if err != nil || memberID == 0 {
		return "", "", ErrInvalidActor
	}
	member, err := s.catalog.GetMember(ctx, memberID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return "", "", ErrInvalidActor
		}
		return "", "", err
	}
	if !member.Active {
		return "", "", ErrForbidden
	}
	return fmt.Sprintf("member:%s", member.ID), fmt.Sprintf("role:%s", strings.ToLower(string(member.Role))), nil
}

// ensureGrouping keeps exactly one role link per subject so a role change in
// the member catalog takes effect on the next check.
func (s *ServiceImpl) ensureGrouping(subject, roleName string) error {
	if subject == SystemActor {
		has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
		if err != nil || has {
			return err
		}
		_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
		return err
	}

	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil || has {
		return err
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Members act on their own memberships.
		{"role:member", ObjectSubscription, ActionSubscriptionView},
		{"role:member", ObjectSubscription, ActionSubscriptionCreate},
		{"role:member", ObjectSubscription, ActionSubscriptionRenew},
		{"role:member", ObjectPayment, ActionPaymentCreate},
		{"role:member", ObjectPayment, ActionPaymentView},
		{"role:member", ObjectBooking, ActionBookingRequest},
		{"role:member", ObjectCheckIn, ActionCheckInCreate},

		{"role:trainer", ObjectSubscription, ActionSubscriptionView},
		{"role:trainer", ObjectBooking, ActionBookingConfirm},
		{"role:trainer", ObjectBooking, ActionBookingReject},

		{"role:staff", ObjectSubscription, "*"},
		{"role:staff", ObjectPayment, "*"},
		{"role:staff", ObjectBooking, "*"},
		{"role:staff", ObjectCheckIn, "*"},
		{"role:staff", ObjectDiscount, ActionDiscountApply},

		{"role:admin", ObjectSubscription, "*"},
		{"role:admin", ObjectPayment, "*"},
		{"role:admin", ObjectDiscount, "*"},
		{"role:admin", ObjectBooking, "*"},
		{"role:admin", ObjectCheckIn, "*"},
		{"role:admin", ObjectReconciler, "*"},

		{"role:system", ObjectSubscription, "*"},
		{"role:system", ObjectPayment, "*"},
		{"role:system", ObjectDiscount, "*"},
		{"role:system", ObjectBooking, "*"},
		{"role:system", ObjectCheckIn, "*"},
		{"role:system", ObjectReconciler, "*"},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
