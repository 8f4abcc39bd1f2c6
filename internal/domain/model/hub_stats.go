package model

import "time"

// HubStats is a hub/queue counter snapshot. No code in this module builds
// or renders one.
type HubStats struct {
	TotalUsers       int           `json:"total_users"`
	TotalConnections int           `json:"total_connections"`
	OfflineQueued    int           `json:"offline_queued"`
	Uptime           time.Duration `json:"uptime"`
	Shards           []ShardStats  `json:"shards,omitempty"`
}

type ShardStats struct {
	ShardID     int `json:"shard_id"`
	UserCount   int `json:"user_count"`
	ActiveCells int `json:"active_cells"`
}
