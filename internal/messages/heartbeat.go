package messages

import (
	"fmt"
	"time"
)

const HeartbeatCommand = "heartbeat"

// Heartbeat is a liveness signal with no executable payload.
type Heartbeat struct {
	*Base
	At time.Time
}

func NewHeartbeat(at time.Time) *Heartbeat {
	h := &Heartbeat{Base: NewBase("Heartbeat", TypeHeartbeat), At: at.UTC()}
	h.SetCommand(HeartbeatCommand)
	h.AppendExtra("time", h.At.Format(time.RFC3339Nano))
	return h
}

func (h *Heartbeat) String() string {
	return fmt.Sprintf("<%s %s>", h.Class(), h.At.Format(time.RFC3339Nano))
}
