package changefeed

import "go.uber.org/fx"

// Module provides the change feed hub. A Listener must be supplied by the store.
var Module = fx.Provide(NewHub)
