package app

import "github.com/avelis/notedrop/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickConn
)

// Policy decides what to do with a connection whose send buffer is
// full during a broadcast.
type Policy interface {
	OnBackpressure(conn domain.ConnID) BackpressureAction
}

// SimplePolicy kicks slow consumers: a connection that cannot drain
// its buffer is better reconnected than fed a growing backlog.
type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(domain.ConnID) BackpressureAction {
	return KickConn
}
