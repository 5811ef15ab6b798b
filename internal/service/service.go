// Package service starts the input receiver from the loaded configuration.
package service

import (
	"fmt"
	"log"

	"inputrelay/internal/config"
	"inputrelay/internal/input"
	"inputrelay/internal/metrics"
	"inputrelay/internal/network"
	"inputrelay/internal/receiver"
)

// BuildTarget selects the sink for cfg. backend creates the virtual devices
// in output mode.
func BuildTarget(cfg *config.Config, backend input.Backend) (receiver.Target, error) {
	if cfg.Target.SurfaceID != 0 {
		// Surface relaying needs a compositor connection, which this binary
		// does not carry; library users pass their own input.Relay.
		return receiver.Target{}, fmt.Errorf("surface %d: no compositor relay available", cfg.Target.SurfaceID)
	}

	out, err := cfg.SelectedOutput()
	if err != nil {
		return receiver.Target{}, err
	}
	log.Printf("Service: Using output %d %q at %d,%d (%dx%d)", cfg.Target.OutputNumber, out.Name, out.X, out.Y, out.Width, out.Height)
	return receiver.Target{Backend: backend, Geometry: out.Geometry()}, nil
}

// StartReceiver starts the receiver described by cfg. Any failure is logged
// and leaves the receiver disabled: the returned listener is nil and the
// rest of the process keeps running.
func StartReceiver(cfg *config.Config, backend input.Backend, m *metrics.Metrics, onStatus func(receiver.Status)) *receiver.Listener {
	if cfg.Relay.Address == "" {
		log.Println("Service: No input sender configured; set relay.address or pass -addr")
		return nil
	}

	if local, err := network.LocalAddrFor(cfg.Relay.Address, cfg.Relay.Port); err == nil {
		log.Printf("Service: Reaching input sender from local address %s", local)
	}

	target, err := BuildTarget(cfg, backend)
	if err != nil {
		log.Printf("Service: Input receiver disabled: %v", err)
		return nil
	}

	listener, err := receiver.Start(receiver.Config{
		Address:  cfg.Relay.Address,
		Port:     cfg.Relay.Port,
		Verbose:  cfg.General.Verbose,
		Backoff:  cfg.Relay.Backoff(),
		Metrics:  m,
		OnStatus: onStatus,
	}, target)
	if err != nil {
		log.Printf("Service: Input receiver disabled: %v", err)
		return nil
	}
	return listener
}
