package ledger

import (
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.store",
	fx.Provide(NewStore),
)
