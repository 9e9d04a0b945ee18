package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/changefeed"
	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/notify"
	"github.com/polkiloo/orderboard/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewBoardFacade,
		newHTTPServer,
		newPaymentPoller,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Facade *BoardFacade
	Config *config.Config
	Logger *slog.Logger
}

func newPaymentPoller(p workerParams) *worker.PaymentPoller {
	return worker.NewPaymentPoller(
		p.Facade,
		p.Config.PaymentPollInterval,
		p.Config.MaxIntentsBatch,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Ctx         context.Context
	Lifecycle   fx.Lifecycle
	Shutdowner  fx.Shutdowner
	Logger      *slog.Logger
	Server      *http.Server
	Poller      *worker.PaymentPoller
	Hub         *changefeed.Hub
	Coordinator *notify.Coordinator
	Dispatcher  *notify.Dispatcher
	Alerts      *notify.AlertBoard
	Config      *config.Config
}

func registerLifecycle(p lifecycleParams) {
	// Alert streams never go idle on their own, so Shutdown would wait for
	// them until the deadline.
	p.Server.RegisterOnShutdown(p.Alerts.Close)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			p.Logger.Info("starting orderboard", slog.String("addr", p.Server.Addr))
			if err := p.Coordinator.Start(p.Ctx); err != nil {
				return err
			}
			p.Hub.Start(p.Ctx)
			p.Poller.Start(p.Ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			var errs []error
			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, err)
			}
			p.Poller.Stop()
			p.Coordinator.Stop()
			p.Dispatcher.Wait()
			if err := p.Hub.Close(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			p.Logger.Info("orderboard stopped")
			return errors.Join(errs...)
		},
	})
}
