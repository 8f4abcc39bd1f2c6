package snowflake

import (
	"go.uber.org/fx"

	"github.com/webitel/im-sync-core/config"
)

// Module provides a Generator seeded from config.SnowflakeConfig. A
// collision between two misconfigured nodes only risks a duplicate
// server_msg_id, never an ordering violation, since pts (not
// server_msg_id) is the ordering key.
var Module = fx.Module("snowflake",
	fx.Provide(func(cfg *config.Config) (*Generator, error) {
		return NewGenerator(cfg.Snowflake.DatacenterID, cfg.Snowflake.MachineID)
	}),
)
