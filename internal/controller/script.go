package controller

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/hondabus/internal/canbus"
)

// Step is one control request held for a number of cycles.
type Step struct {
	Cycles    int        `yaml:"cycles"` // defaults to 1
	Car       CarState   `yaml:"car"`
	Actuators Actuators  `yaml:"actuators"`
	HUD       HUDControl `yaml:"hud"`
}

// Script is a YAML sequence of control requests for offline encoding.
type Script struct {
	Vehicle     string `yaml:"vehicle"`
	LongControl bool   `yaml:"long_control"`
	Offset      int    `yaml:"offset"`
	Steps       []Step `yaml:"steps"`
}

// Cycle is the output of one control cycle.
type Cycle struct {
	Frame    int              `json:"frame"`
	Messages []canbus.Message `json:"messages"`
}

// ParseScript decodes a script. Unknown keys are rejected.
func ParseScript(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty script")
		}
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	for i, st := range s.Steps {
		if st.Cycles < 0 {
			return nil, fmt.Errorf("step %d: cycles must be non-negative, got %d", i, st.Cycles)
		}
	}
	return &s, nil
}

// Run feeds every step through the controller and collects the cycles.
func (c *Controller) Run(steps []Step) []Cycle {
	var out []Cycle
	for _, st := range steps {
		n := st.Cycles
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			frame := c.frame
			out = append(out, Cycle{Frame: frame, Messages: c.Update(st.Car, st.Actuators, st.HUD)})
		}
	}
	return out
}
