// internal/writer/types.go
package writer

import "github.com/tamzrod/simply/internal/poller"

// Target maps one poll read onto a holding register range.
type Target struct {
	// Index of the read inside the poll cycle.
	Index int

	Node      string
	Interface string
	Method    string

	Register uint16
	Quantity uint16
}

// StatusPlan places the connector status block.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Plan is the fully-built export plan for one network.
type Plan struct {
	NetworkID string
	Endpoint  string
	UnitID    uint8

	Targets []Target
	Status  *StatusPlan
}

// Writer writes poll snapshots into holding registers.
type Writer interface {
	Write(res poller.PollResult) error
}
