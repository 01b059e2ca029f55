// internal/status/snapshot.go
package status

// Snapshot represents exactly what the writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16

	QueueLength uint16
	InFlight    bool
	Succeeded   uint32
	Failed      uint32
}

// Counters is the connector activity the snapshot mirrors.
type Counters struct {
	QueueLength int
	InFlight    bool
	Succeeded   uint64
	Failed      uint64
}

// WithCounters returns s with its counter slots taken from c.
// Values that do not fit saturate.
func (s Snapshot) WithCounters(c Counters) Snapshot {
	s.QueueLength = sat16(c.QueueLength)
	s.InFlight = c.InFlight
	s.Succeeded = sat32(c.Succeeded)
	s.Failed = sat32(c.Failed)
	return s
}

func sat16(v int) uint16 {
	switch {
	case v < 0:
		return 0
	case v > 0xFFFF:
		return 0xFFFF
	}
	return uint16(v)
}

func sat32(v uint64) uint32 {
	if v > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(v)
}
