package notify

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/changefeed"
	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/domain/repository"
)

// Module provides the alert board, dispatcher and coordinator. A
// PushScheduler must be supplied by the push transport.
var Module = fx.Provide(
	newAlertBoard,
	newDispatcher,
	newCoordinator,
)

type boardParams struct {
	fx.In

	Orders repository.OrderRepository
	Clock  clock.Clock
	Logger *slog.Logger
}

func newAlertBoard(p boardParams) *AlertBoard {
	return NewAlertBoard(p.Orders, p.Clock, p.Logger)
}

type dispatcherParams struct {
	fx.In

	Config   *config.Config
	Settings repository.SettingsRepository
	Board    *AlertBoard
	Push     PushScheduler
	Clock    clock.Clock
	Logger   *slog.Logger
}

func newDispatcher(p dispatcherParams) *Dispatcher {
	prefs := NewStationPreferences(p.Settings, p.Config.StationRole)
	return NewDispatcher(prefs, p.Board, p.Board, p.Push, p.Clock, p.Logger)
}

type coordinatorParams struct {
	fx.In

	Config     *config.Config
	Hub        *changefeed.Hub
	Orders     repository.OrderRepository
	Dispatcher *Dispatcher
	Clock      clock.Clock
	Logger     *slog.Logger
}

func newCoordinator(p coordinatorParams) *Coordinator {
	classifier := NewClassifier(p.Clock, p.Orders, p.Config.NewOrderWindow, p.Config.ClassifyByMarker)
	return NewCoordinator(p.Hub, p.Orders, classifier, p.Dispatcher, p.Clock, CoordinatorConfig{
		NewOrderWindow: p.Config.NewOrderWindow,
		QuietPeriod:    p.Config.UpdateQuietPeriod,
	}, p.Logger)
}
