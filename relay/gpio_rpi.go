//go:build linux && arm
// +build linux,arm

package relay

import (
	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/rpi"
)

type embdPin struct {
	pin        embd.DigitalPin
	activeHigh bool
}

func (p *embdPin) Write(energized bool) error {
	level := embd.Low
	if energized == p.activeHigh {
		level = embd.High
	}
	return p.pin.Write(int(level))
}

func (p *embdPin) Close() error {
	return p.pin.Close()
}

func openPin(cfg Config) (digitalPin, error) {
	if err := embd.InitGPIO(); err != nil {
		return nil, err
	}
	pin, err := embd.NewDigitalPin(cfg.Pin)
	if err != nil {
		return nil, err
	}
	if err := pin.SetDirection(embd.Out); err != nil {
		return nil, err
	}
	return &embdPin{pin: pin, activeHigh: cfg.ActiveHigh}, nil
}
