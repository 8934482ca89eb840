package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/gymcore/internal/authorization"
	bookingdomain "github.com/smallbiznis/gymcore/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	checkindomain "github.com/smallbiznis/gymcore/internal/checkin/domain"
	"github.com/smallbiznis/gymcore/internal/checkout"
	"github.com/smallbiznis/gymcore/internal/config"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	"github.com/smallbiznis/gymcore/internal/notification"
	"github.com/smallbiznis/gymcore/internal/observability"
	obsmiddleware "github.com/smallbiznis/gymcore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gymcore/internal/observability/metrics"
	obstracing "github.com/smallbiznis/gymcore/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/gymcore/internal/payment/domain"
	"github.com/smallbiznis/gymcore/internal/payment/gateway"
	"github.com/smallbiznis/gymcore/internal/receipt"
	"github.com/smallbiznis/gymcore/internal/reconciler"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

type checkoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type receiptRenderer interface {
	Render(ctx context.Context, paymentID snowflake.ID) ([]byte, error)
}

type sweepRunner interface {
	Sweeps() []string
	RunSweep(ctx context.Context, name string) error
}

type notificationLister interface {
	ListForRecipient(ctx context.Context, recipientID snowflake.ID, limit int) ([]notification.Notification, error)
}

type callbackVerifier interface {
	Verify(ctx context.Context, body []byte, headers http.Header) (*gateway.Callback, error)
	SuccessCode() string
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http.listen.failed", zap.Error(err))
				}
			}()
			log.Info("http.listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Params struct {
	fx.In

	Engine          *gin.Engine
	Log             *zap.Logger
	Authz           authorization.Service
	Catalog         catalogdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	DiscountSvc     discountdomain.Service
	PaymentSvc      paymentdomain.Service
	BookingSvc      bookingdomain.Service
	CheckInSvc      checkindomain.Service
	Checkout        *checkout.Service
	Verifier        *gateway.Verifier
	Receipts        *receipt.Renderer       `optional:"true"`
	Notifications   *notification.Service   `optional:"true"`
	Reconciler      *reconciler.Reconciler  `optional:"true"`
}

type Server struct {
	engine          *gin.Engine
	log             *zap.Logger
	authz           authorization.Service
	catalog         catalogdomain.Service
	subscriptionSvc subscriptiondomain.Service
	discountSvc     discountdomain.Service
	paymentSvc      paymentdomain.Service
	bookingSvc      bookingdomain.Service
	checkInSvc      checkindomain.Service
	checkout        checkoutService
	verifier        callbackVerifier
	receipts        receiptRenderer
	notifications   notificationLister
	reconciler      sweepRunner
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:          p.Engine,
		log:             p.Log.Named("http.server"),
		authz:           p.Authz,
		catalog:         p.Catalog,
		subscriptionSvc: p.SubscriptionSvc,
		discountSvc:     p.DiscountSvc,
		paymentSvc:      p.PaymentSvc,
		bookingSvc:      p.BookingSvc,
		checkInSvc:      p.CheckInSvc,
		checkout:        p.Checkout,
		verifier:        p.Verifier,
	}
	// Typed nil pointers must not leak into the interfaces.
	if p.Receipts != nil {
		s.receipts = p.Receipts
	}
	if p.Notifications != nil {
		s.notifications = p.Notifications
	}
	if p.Reconciler != nil {
		s.reconciler = p.Reconciler
	}
	return s
}

func (s *Server) RegisterRoutes() {
	// Signed by the gateway, not by a member.
	s.engine.POST(obsmiddleware.GatewayCallbackRoute, s.HandleGatewayCallback)

	api := s.engine.Group("/", ActorContext())

	api.POST("/checkout", s.Require(authorization.ObjectPayment, authorization.ActionPaymentCreate), s.Checkout)

	subs := api.Group("/subscriptions")
	subs.POST("", s.Require(authorization.ObjectSubscription, authorization.ActionSubscriptionCreate), s.CreateSubscription)
	subs.GET("/:id", s.Require(authorization.ObjectSubscription, authorization.ActionSubscriptionView), s.GetSubscription)
	subs.POST("/:id/status", s.Require(authorization.ObjectSubscription, authorization.ActionSubscriptionChangeStatus), s.ChangeSubscriptionStatus)
	subs.POST("/:id/renew", s.Require(authorization.ObjectSubscription, authorization.ActionSubscriptionRenew), s.RenewSubscription)
	subs.POST("/:id/suspend", s.Require(authorization.ObjectSubscription, authorization.ActionSubscriptionSuspend), s.SuspendSubscription)
	subs.POST("/:id/unsuspend", s.Require(authorization.ObjectSubscription, authorization.ActionSubscriptionUnsuspend), s.UnsuspendSubscription)
	subs.GET("/:id/payments", s.Require(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListSubscriptionPayments)
	api.GET("/members/:id/subscriptions", s.Require(authorization.ObjectSubscription, authorization.ActionSubscriptionView), s.ListMemberSubscriptions)
	api.GET("/members/:id/notifications", s.ListMemberNotifications)

	discounts := api.Group("/discounts")
	api.POST("/discount-codes/validate", s.Require(authorization.ObjectPayment, authorization.ActionPaymentCreate), s.ValidateDiscountCode)
	discounts.POST("/:id/apply", s.Require(authorization.ObjectDiscount, authorization.ActionDiscountApply), s.ApplyDiscountManual)
	discounts.POST("", s.Require(authorization.ObjectDiscount, authorization.ActionDiscountManage), s.CreateDiscount)
	discounts.GET("", s.Require(authorization.ObjectDiscount, authorization.ActionDiscountManage), s.ListDiscounts)
	discounts.GET("/:id", s.Require(authorization.ObjectDiscount, authorization.ActionDiscountManage), s.GetDiscount)
	discounts.PUT("/:id", s.Require(authorization.ObjectDiscount, authorization.ActionDiscountManage), s.UpdateDiscount)

	payments := api.Group("/payments")
	payments.POST("", s.Require(authorization.ObjectPayment, authorization.ActionPaymentCreate), s.CreatePayment)
	payments.GET("/:id", s.Require(authorization.ObjectPayment, authorization.ActionPaymentView), s.GetPayment)
	payments.POST("/:id/complete", s.Require(authorization.ObjectPayment, authorization.ActionPaymentComplete), s.CompletePayment)
	payments.POST("/:id/fail", s.Require(authorization.ObjectPayment, authorization.ActionPaymentFail), s.FailPayment)
	payments.POST("/:id/cancel", s.Require(authorization.ObjectPayment, authorization.ActionPaymentFail), s.CancelPayment)
	payments.GET("/:id/receipt", s.Require(authorization.ObjectPayment, authorization.ActionPaymentView), s.GetPaymentReceipt)

	bookings := api.Group("/bookings")
	bookings.POST("", s.Require(authorization.ObjectBooking, authorization.ActionBookingRequest), s.CreateBookingRequest)
	bookings.GET("/:id", s.Require(authorization.ObjectBooking, authorization.ActionBookingRequest), s.GetBookingRequest)
	bookings.POST("/:id/confirm", s.Require(authorization.ObjectBooking, authorization.ActionBookingConfirm), s.ConfirmBookingRequest)
	bookings.POST("/:id/reject", s.Require(authorization.ObjectBooking, authorization.ActionBookingReject), s.RejectBookingRequest)
	api.POST("/schedules", s.Require(authorization.ObjectBooking, authorization.ActionBookingConfirm), s.CreateSchedule)
	api.GET("/schedules/:id", s.Require(authorization.ObjectBooking, authorization.ActionBookingRequest), s.GetSchedule)

	checkIns := api.Group("/check-ins")
	checkIns.POST("", s.Require(authorization.ObjectCheckIn, authorization.ActionCheckInCreate), s.CheckIn)
	checkIns.GET("/:id", s.Require(authorization.ObjectCheckIn, authorization.ActionCheckInCreate), s.GetCheckIn)
	checkIns.POST("/:id/check-out", s.Require(authorization.ObjectCheckIn, authorization.ActionCheckInCreate), s.CheckOut)

	admin := api.Group("/admin", s.Require(authorization.ObjectReconciler, authorization.ActionReconcilerRun))
	admin.GET("/reconciler/sweeps", s.ListSweeps)
	admin.POST("/reconciler/:sweep/run", s.RunSweep)
}
