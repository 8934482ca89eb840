// Package notification records in-app notifications for members and trainers
// and mirrors them by email when SMTP is configured. Delivery is best effort.
package notification

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Type string

const (
	TypeBookingExpired    Type = "booking_expired"
	TypeBookingConfirmed  Type = "booking_confirmed"
	TypeBookingRejected   Type = "booking_rejected"
	TypeScheduleCancelled Type = "schedule_cancelled"
	TypeScheduleCompleted Type = "schedule_completed"
	TypeAutoCheckout      Type = "auto_checkout"
)

type Notification struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	RecipientID snowflake.ID      `gorm:"not null;index" json:"recipient_id"`
	Type        Type              `gorm:"type:text;not null" json:"type"`
	Title       string            `gorm:"type:text;not null" json:"title"`
	Message     string            `gorm:"type:text;not null" json:"message"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	Read        bool              `gorm:"not null;default:false" json:"read"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// Message is what callers hand to the dispatcher.
type Message struct {
	RecipientID snowflake.ID
	Type        Type
	Title       string
	Body        string
	Metadata    map[string]any
}

type Dispatcher interface {
	Notify(ctx context.Context, msg Message) error
}

var Module = fx.Module("notification",
	fx.Provide(NewMailerFromConfig),
	fx.Provide(NewService),
	fx.Provide(func(s *Service) Dispatcher { return s }),
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Catalog catalogdomain.Service
	Mailer  Mailer `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	catalog catalogdomain.Service
	mailer  Mailer
}

func NewService(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("notification.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		catalog: p.Catalog,
		mailer:  p.Mailer,
	}
}

// Notify stores the notification and then tries the email copy. An email
// failure is logged, never returned.
func (s *Service) Notify(ctx context.Context, msg Message) error {
	n := &Notification{
		ID:          s.genID.Generate(),
		RecipientID: msg.RecipientID,
		Type:        msg.Type,
		Title:       msg.Title,
		Message:     msg.Body,
		Metadata:    datatypes.JSONMap(msg.Metadata),
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := pkgdb.Conn(ctx, s.db).Create(n).Error; err != nil {
		return err
	}
	s.log.Debug("notification.stored",
		zap.String("recipient_id", msg.RecipientID.String()),
		zap.String("type", string(msg.Type)),
	)

	if s.mailer == nil {
		return nil
	}
	member, err := s.catalog.GetMember(ctx, msg.RecipientID)
	if err != nil || member.Email == "" {
		return nil
	}
	if err := s.mailer.Send(ctx, []string{member.Email}, msg.Title, msg); err != nil {
		s.log.Warn("notification.email_failed",
			zap.String("recipient_id", msg.RecipientID.String()),
			zap.String("type", string(msg.Type)),
			zap.Error(err),
		)
	}
	return nil
}

// ListForRecipient returns the newest notifications first.
func (s *Service) ListForRecipient(ctx context.Context, recipientID snowflake.ID, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var items []Notification
	err := pkgdb.Conn(ctx, s.db).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
