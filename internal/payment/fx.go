package payment

import (
	"github.com/smallbiznis/gymcore/internal/payment/gateway"
	"github.com/smallbiznis/gymcore/internal/payment/repository"
	paymentservice "github.com/smallbiznis/gymcore/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(paymentservice.NewService),
	fx.Provide(gateway.NewVerifier),
)
