package configstore

import (
	"context"
	"time"
)

// Inline is a Store whose ConfigSpec is supplied literally at bootstrap
// time (no external dependency); it never reports a change, since the
// spec was loaded once and has nowhere else to be edited.
type Inline struct {
	name            string
	spec            *ConfigSpec
	refreshInterval time.Duration
}

// NewInline wraps a pre-built, pre-validated ConfigSpec.
func NewInline(name string, spec *ConfigSpec, refreshInterval time.Duration) *Inline {
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Minute
	}
	return &Inline{name: name, spec: spec, refreshInterval: refreshInterval}
}

func (i *Inline) Name() string { return i.name }

func (i *Inline) Load(ctx context.Context) (*ConfigSpec, error) {
	return i.spec, nil
}

func (i *Inline) HasChanged(ctx context.Context) (bool, error) {
	return false, nil
}

func (i *Inline) RefreshInterval() time.Duration { return i.refreshInterval }
