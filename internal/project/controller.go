// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"context"
	"fmt"
	"log"

	"github.com/wingedpig/devdock/internal/events"
	"github.com/wingedpig/devdock/internal/supervisor"
)

var _ supervisor.Listener = (*Registry)(nil)

// Controller starts and stops registered projects.
type Controller struct {
	registry   *Registry
	supervisor *supervisor.Supervisor
	bus        events.EventBus
}

// NewController wires the registry to the supervisor's notifications.
func NewController(reg *Registry, sup *supervisor.Supervisor, bus events.EventBus) *Controller {
	sup.Notifier().Register(reg)
	return &Controller{registry: reg, supervisor: sup, bus: bus}
}

// Registry returns the project store.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Supervisor returns the process supervisor.
func (c *Controller) Supervisor() *supervisor.Supervisor {
	return c.supervisor
}

// Start launches the project. A failed start is reported in the result
// and leaves the project stopped; the error is only set for unknown IDs.
func (c *Controller) Start(ctx context.Context, id string) (supervisor.StartResult, error) {
	p, err := c.registry.Get(id)
	if err != nil {
		return supervisor.StartResult{}, err
	}

	res := c.supervisor.Start(ctx, p.Handle())
	if !res.Success {
		return res, nil
	}

	if _, err := c.registry.MarkRunning(id, res.PID); err != nil {
		log.Printf("Projects: started %s but could not record it: %v", id, err)
	}
	// A process that exits at once may have reported stopped already.
	if !c.supervisor.IsRunning(id) {
		c.registry.MarkStopped(id)
	}
	c.publish(ctx, events.EventProjectStarted, id, map[string]interface{}{
		"pid":     res.PID,
		"command": p.StartCommand,
	})
	return res, nil
}

// Stop terminates the project's dev server. The result is false only when
// the stop signal could not be delivered.
func (c *Controller) Stop(ctx context.Context, id string) (bool, error) {
	if _, err := c.registry.Get(id); err != nil {
		return false, err
	}

	ok := c.supervisor.Stop(id)
	if !ok {
		return false, nil
	}
	if _, err := c.registry.MarkStopped(id); err != nil {
		log.Printf("Projects: stopped %s but could not record it: %v", id, err)
	}
	c.publish(ctx, events.EventProjectStatus, id, map[string]interface{}{
		"status": string(supervisor.StatusStopped),
	})
	return true, nil
}

// Delete stops the project if it is running and removes it.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if _, err := c.registry.Get(id); err != nil {
		return err
	}
	if c.supervisor.IsRunning(id) && !c.supervisor.Stop(id) {
		return fmt.Errorf("stop %s before delete: signal failed", id)
	}
	return c.registry.Delete(id)
}

// Status reports the registry's view of the project combined with the
// supervisor's.
func (c *Controller) Status(id string) (supervisor.Status, error) {
	p, err := c.registry.Get(id)
	if err != nil {
		return "", err
	}
	if c.supervisor.IsRunning(id) {
		return supervisor.StatusRunning, nil
	}
	return p.Status, nil
}

func (c *Controller) publish(ctx context.Context, eventType, id string, payload map[string]interface{}) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, events.Event{Type: eventType, Project: id, Payload: payload}); err != nil {
		log.Printf("Projects: failed to publish %s for %s: %v", eventType, id, err)
	}
}
