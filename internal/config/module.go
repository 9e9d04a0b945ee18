package config

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module loads configuration once per process and flags unsafe defaults.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Invoke(warnUnsafeDefaults),
)

func warnUnsafeDefaults(cfg *Config, logger *slog.Logger) {
	if cfg.UsesDefaultSecret() {
		logger.Warn("auth tokens are signed with the default secret; set --jwt-secret or --jwt-secret-file")
	}
}
