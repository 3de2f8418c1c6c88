package saturation

import (
	"github.com/nerrad567/vibrant/internal/display"
)

// Output is the part of a display.Controller the Service drives.
type Output interface {
	Name() string
	Backend() display.Backend
	Saturation() (float64, error)
	SetSaturation(s float64) error
}

// Outputs lists and looks up controllable outputs.
type Outputs interface {
	Outputs() []Output
	Output(name string) (Output, error)
}

// FromInstance adapts a display.Instance to Outputs.
func FromInstance(inst *display.Instance) Outputs {
	return instanceOutputs{inst: inst}
}

type instanceOutputs struct {
	inst *display.Instance
}

func (o instanceOutputs) Outputs() []Output {
	controllers := o.inst.Controllers()
	out := make([]Output, len(controllers))
	for i, c := range controllers {
		out[i] = c
	}
	return out
}

func (o instanceOutputs) Output(name string) (Output, error) {
	c, err := o.inst.Controller(name)
	if err != nil {
		return nil, err
	}
	return c, nil
}
