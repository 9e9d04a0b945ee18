package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/adapter/events"
	"github.com/polkiloo/orderboard/internal/adapter/idempotency"
	"github.com/polkiloo/orderboard/internal/adapter/payment"
	"github.com/polkiloo/orderboard/internal/adapter/push"
	"github.com/polkiloo/orderboard/internal/app"
	"github.com/polkiloo/orderboard/internal/changefeed"
	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/logger"
	"github.com/polkiloo/orderboard/internal/notify"
	"github.com/polkiloo/orderboard/internal/pkg/auth"
	"github.com/polkiloo/orderboard/internal/server/http/handlers"
	"github.com/polkiloo/orderboard/internal/server/http/router"
	"github.com/polkiloo/orderboard/internal/storage/postgres"
	"github.com/polkiloo/orderboard/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		changefeed.Module,
		payment.Module,
		push.Module,
		events.Module,
		idempotency.Module,
		fx.Provide(clock.Real),
		fx.Provide(
			func(g payment.Gateway) usecase.PaymentGateway { return g },
			func(g payment.Gateway) app.PaymentStatusSource { return g },
			func(p *push.Publisher) notify.PushScheduler { return p },
			func(p *events.Publisher) usecase.EventPublisher { return p },
			func(s *idempotency.RedisStore) usecase.IdempotencyStore { return s },
		),
		usecase.Module,
		notify.Module,
		fx.Provide(func(f *app.BoardFacade) handlers.BoardFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
