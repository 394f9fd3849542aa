package app

import (
	"strings"

	"github.com/dkeye/CoNote/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	CloseConn
)

// Policy decides what happens to a client whose outgoing queue is full.
type Policy interface {
	OnBackPressure(conn core.SignalConnection) BackpressureAction
}

// SimplePolicy disconnects slow clients. Every state frame is a full
// snapshot, so a reconnecting client loses nothing.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.SignalConnection) BackpressureAction {
	return CloseConn
}

// LenientPolicy drops frames and keeps the connection.
type LenientPolicy struct{}

func (LenientPolicy) OnBackPressure(core.SignalConnection) BackpressureAction {
	return DropFrame
}

// ParsePolicy maps the backpressure config value to a policy: "drop" keeps
// slow clients and drops their frames, anything else closes them.
func ParsePolicy(name string) Policy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "drop":
		return LenientPolicy{}
	default:
		return SimplePolicy{}
	}
}
