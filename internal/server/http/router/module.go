package router

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/server/http/handlers"
)

// Module builds the gin engine. Gin runs in debug mode only when the log
// level is debug.
var Module = fx.Provide(newEngine)

type engineParams struct {
	fx.In

	Config *config.Config
	Facade handlers.BoardFacade
	Logger *slog.Logger
}

func newEngine(p engineParams) *gin.Engine {
	gin.SetMode(ginMode(p.Config.LogLevel))
	return Setup(p.Facade, p.Logger)
}

func ginMode(level string) string {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
