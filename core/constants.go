package core

import "github.com/pkg/errors"

// Defaults for engine options
const (
	DefaultReadChunkSize   = 1024
	DefaultMaxRequestBytes = 8 << 20
)

// Error definitions
var (
	// ErrConnectionClosed means the peer closed the connection before a
	// complete request arrived
	ErrConnectionClosed = errors.New("connection closed before request was complete")

	// ErrRequestTooLarge means the request head and body exceed the
	// configured maximum
	ErrRequestTooLarge = errors.New("request too large")
)

// ConnState is the position of a connection in the request pipeline
type ConnState int32

// Connection states
const (
	StateReading ConnState = iota
	StateParsed
	StateDispatching
	StateResponding
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateParsed:
		return "parsed"
	case StateDispatching:
		return "dispatching"
	case StateResponding:
		return "responding"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
