// internal/poller/builder.go
package poller

import (
	"github.com/tamzrod/simply/internal/config"
)

// Build constructs a Poller for one network from its poll configuration.
// Read data, when present, is passed as the single call argument.
func Build(networkID string, pc config.PollConfig, client Client) (*Poller, error) {
	reads := make([]ReadBlock, 0, len(pc.Reads))
	for _, r := range pc.Reads {
		rb := ReadBlock{
			Node:      r.Node,
			Interface: r.Interface,
			Method:    r.Method,
		}
		if len(r.Data) > 0 {
			rb.Args = []any{r.Data}
		}
		reads = append(reads, rb)
	}

	return New(
		Config{
			NetworkID: networkID,
			Interval:  pc.Interval(),
			Reads:     reads,
		},
		client,
	)
}
