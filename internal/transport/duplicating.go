package transport

import "github.com/dyluth/warren/pkg/wire"

// Duplicating wraps a transport and delivers every message twice,
// back-to-back on the same link. The engine's duplicate suppression must
// make the second copy invisible; the robustness tests run full solves
// through this wrapper and compare against single-delivery runs.
type Duplicating struct {
	Inner Transport
}

// Register implements Transport.
func (d *Duplicating) Register(agent string) (<-chan wire.Msg, error) {
	return d.Inner.Register(agent)
}

// Send implements Transport by sending the message twice.
func (d *Duplicating) Send(agent string, m wire.Msg) error {
	if err := d.Inner.Send(agent, m); err != nil {
		return err
	}
	return d.Inner.Send(agent, m)
}

// Close implements Transport.
func (d *Duplicating) Close() error {
	return d.Inner.Close()
}
