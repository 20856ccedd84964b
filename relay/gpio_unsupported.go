//go:build !linux || !arm
// +build !linux !arm

package relay

import "errors"

// openPin has no embd-backed implementation on this platform. GPIO relays
// are only ever constructed when running on the target hardware; anywhere
// else use Software instead.
func openPin(cfg Config) (digitalPin, error) {
	return nil, errors.New("GPIO relays require a linux/arm host")
}
