package pipeline

import (
	"fmt"

	"go.uber.org/multierr"
)

// PingPong is a pair of targets with read and write roles, for passes that
// consume their own previous output.
type PingPong struct {
	targets    [2]Target
	readIndex  int // the result of the previous step
	writeIndex int // the target being rendered
}

// NewPingPong creates both targets. On failure nothing is left allocated.
func NewPingPong(dev Device, width, height int) (*PingPong, error) {
	p := &PingPong{readIndex: 0, writeIndex: 1}
	for i := range p.targets {
		t, err := dev.NewTarget(width, height)
		if err != nil {
			if i > 0 {
				err = multierr.Append(err, p.targets[0].Destroy())
			}
			return nil, fmt.Errorf("failed to create ping-pong target %d: %w", i, err)
		}
		p.targets[i] = t
	}
	return p, nil
}

func (p *PingPong) Read() Target  { return p.targets[p.readIndex] }
func (p *PingPong) Write() Target { return p.targets[p.writeIndex] }

// Swap exchanges the read and write roles.
func (p *PingPong) Swap() {
	p.readIndex, p.writeIndex = p.writeIndex, p.readIndex
}

func (p *PingPong) Destroy() error {
	var err error
	for _, t := range p.targets {
		if t != nil {
			err = multierr.Append(err, t.Destroy())
		}
	}
	return err
}
