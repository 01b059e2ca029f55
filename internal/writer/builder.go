// internal/writer/builder.go
package writer

import (
	"errors"

	"github.com/tamzrod/simply/internal/config"
	wmodbus "github.com/tamzrod/simply/internal/writer/modbus"
)

// BuildPlan converts the export section into a Plan.
// Assumes config has already passed overlap validation.
// It reports false when export is not configured.
func BuildPlan(c *config.Config) (Plan, bool, error) {
	if c == nil {
		return Plan{}, false, errors.New("writer: config is nil")
	}
	if c.Export == nil {
		return Plan{}, false, nil
	}
	e := c.Export

	plan := Plan{
		NetworkID: c.Network.ID,
		Endpoint:  e.Endpoint,
		UnitID:    e.UnitID,
	}

	for i, r := range c.Poll.Reads {
		if r.Register == nil {
			continue
		}
		plan.Targets = append(plan.Targets, Target{
			Index:     i,
			Node:      r.Node,
			Interface: r.Interface,
			Method:    r.Method,
			Register:  *r.Register,
			Quantity:  r.Quantity,
		})
	}

	if e.StatusSlot != nil {
		plan.Status = &StatusPlan{
			Endpoint:   e.Endpoint,
			UnitID:     e.UnitID,
			BaseSlot:   *e.StatusSlot,
			DeviceName: e.DeviceName,
		}
	}

	return plan, true, nil
}

// BuildEndpointClient connects to the export endpoint.
func BuildEndpointClient(e config.ExportConfig) (*wmodbus.EndpointClient, error) {
	return wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: e.Endpoint,
		Timeout:  e.Timeout(),
	})
}
