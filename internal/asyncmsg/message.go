// internal/asyncmsg/message.go
package asyncmsg

import "fmt"

// Source describes where an asynchronous message came from.
type Source struct {
	NetworkID  string
	NodeID     string
	Peripheral int
}

// Message is unsolicited inbound data not correlated to any call request.
type Message struct {
	Kind           string
	MainData       any
	AdditionalData any
	Source         Source
}

func (m Message) String() string {
	return fmt.Sprintf("async{kind=%s net=%s node=%s pnum=%d data=%v}",
		m.Kind, m.Source.NetworkID, m.Source.NodeID, m.Source.Peripheral, m.MainData)
}

// Filter selects messages by source and kind. Unset fields match anything.
type Filter struct {
	NetworkID  string
	NodeID     string
	Peripheral *int
	Kind       string
}

// Peripheral returns a pointer usable as Filter.Peripheral.
func Peripheral(n int) *int { return &n }

// Match reports whether msg has every property the filter requires.
func (f Filter) Match(msg Message) bool {
	if f.NetworkID != "" && f.NetworkID != msg.Source.NetworkID {
		return false
	}
	if f.NodeID != "" && f.NodeID != msg.Source.NodeID {
		return false
	}
	if f.Peripheral != nil && *f.Peripheral != msg.Source.Peripheral {
		return false
	}
	if f.Kind != "" && f.Kind != msg.Kind {
		return false
	}
	return true
}
