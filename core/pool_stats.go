package core

import (
	"encoding/json"
	"fmt"

	"github.com/searchktools/lean-server/core/pools"
)

// Stats is a snapshot of connection counters and buffer pool usage
type Stats struct {
	Connections ConnectionStats     `json:"connections"`
	BytePool    pools.BytePoolStats `json:"byte_pool"`
}

// ConnectionStats counts connections by outcome
type ConnectionStats struct {
	Accepted uint64 `json:"accepted"`
	Active   int64  `json:"active"`
	Served   uint64 `json:"served"` // a response was written
	Failed   uint64 `json:"failed"` // closed without a response
}

// Stats returns the current counters
func (e *Engine) Stats() Stats {
	return Stats{
		Connections: ConnectionStats{
			Accepted: e.stats.accepted.Load(),
			Active:   e.stats.active.Load(),
			Served:   e.stats.served.Load(),
			Failed:   e.stats.failed.Load(),
		},
		BytePool: e.bytePool.Stats(),
	}
}

// String renders the stats as JSON
func (s Stats) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("stats: %v", err)
	}
	return string(data)
}
