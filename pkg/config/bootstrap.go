package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Bootstrap is the static configuration applied to a fresh engine: flags,
// rollouts, experiments and alert thresholds.
//
//	flags:
//	  - name: dark_mode
//	    percentage: 0.5
//	rollouts:
//	  - feature: new_checkout
//	    initial: 0.1
//	tests:
//	  - name: checkout
//	    variants: [control, treatment]
//	    target: 0.5
//	alerts:
//	  - signal: crash_rate
//	    threshold: 0.01
//	    direction: exceeds
//	    cooldown: 10m
type Bootstrap struct {
	Flags    []FlagSpec    `yaml:"flags"`
	Rollouts []RolloutSpec `yaml:"rollouts"`
	Tests    []TestSpec    `yaml:"tests"`
	Alerts   []AlertSpec   `yaml:"alerts"`
}

type FlagSpec struct {
	Name       string  `yaml:"name"`
	Percentage float64 `yaml:"percentage"`
}

type RolloutSpec struct {
	Feature     string  `yaml:"feature"`
	Initial     float64 `yaml:"initial"`
	Description string  `yaml:"description"`
}

type TestSpec struct {
	Name        string   `yaml:"name"`
	Variants    []string `yaml:"variants"`
	Target      float64  `yaml:"target"`
	Description string   `yaml:"description"`
}

type AlertSpec struct {
	Signal    string        `yaml:"signal"`
	Threshold float64       `yaml:"threshold"`
	Direction string        `yaml:"direction"`
	Enabled   *bool         `yaml:"enabled"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

// IsEnabled treats a missing enabled key as true.
func (a AlertSpec) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// ParseBootstrap decodes and structurally validates a bootstrap document.
// Domain validation (percentage ranges, known signals) is left to the
// components the entries are applied to.
func ParseBootstrap(data []byte) (Bootstrap, error) {
	var b Bootstrap
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Bootstrap{}, errors.Join(ErrBootstrap, err)
	}
	if err := b.validate(); err != nil {
		return Bootstrap{}, err
	}
	return b, nil
}

// LoadBootstrap reads and parses the bootstrap file at path.
func LoadBootstrap(path string) (Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bootstrap{}, errors.Join(ErrBootstrap, err)
	}
	return ParseBootstrap(data)
}

func (b Bootstrap) validate() error {
	var errs []error
	for i, f := range b.Flags {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("%w: flags[%d]: name is required", ErrBootstrap, i))
		}
	}
	for i, r := range b.Rollouts {
		if r.Feature == "" {
			errs = append(errs, fmt.Errorf("%w: rollouts[%d]: feature is required", ErrBootstrap, i))
		}
	}
	for i, t := range b.Tests {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("%w: tests[%d]: name is required", ErrBootstrap, i))
		}
	}
	for i, a := range b.Alerts {
		if a.Signal == "" {
			errs = append(errs, fmt.Errorf("%w: alerts[%d]: signal is required", ErrBootstrap, i))
		}
	}
	return errors.Join(errs...)
}
