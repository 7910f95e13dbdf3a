// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hub

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"rvolution/internal/entity"
	"rvolution/internal/logger"
	"rvolution/internal/rvolution"
)

// APIServer is the integration surface the daemon runs. Implemented by the
// integration package; injected to keep transport out of the hub core.
type APIServer interface {
	Start() error
	Stop(ctx context.Context) error
}

// deviceRuntime bundles everything alive for one registered device.
type deviceRuntime struct {
	config DeviceConfig
	client *rvolution.Client
	player *entity.MediaPlayer
	remote *entity.Remote
	poller *Poller
}

// Daemon owns the runtime for all registered devices: one client, one
// media-player entity, one remote entity, and one poller per device.
// Poller lifecycle is tied 1:1 to registry membership.
type Daemon struct {
	registry  *Registry
	apiServer APIServer
	listener  entity.AttributeListener
	logger    zerolog.Logger

	mu      sync.RWMutex
	devices map[string]*deviceRuntime
	running bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDaemon creates a daemon around a loaded registry.
func NewDaemon(registry *Registry) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		registry: registry,
		devices:  make(map[string]*deviceRuntime),
		logger:   logger.Component("daemon"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetAPIServer injects the integration surface started with the daemon.
func (d *Daemon) SetAPIServer(server APIServer) {
	d.apiServer = server
}

// SetAttributeListener registers the listener wired into every entity,
// current and future.
func (d *Daemon) SetAttributeListener(listener entity.AttributeListener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listener = listener
	for _, runtime := range d.devices {
		runtime.player.SetListener(listener)
		runtime.remote.SetListener(listener)
	}
}

// Registry returns the underlying device registry.
func (d *Daemon) Registry() *Registry {
	return d.registry
}

// Start brings up all registered devices and the integration API, then
// blocks until a shutdown signal arrives or Stop is called.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.mu.Unlock()

	devices := d.registry.List()
	d.logger.Info().
		Int("device_count", len(devices)).
		Msg("Starting R_volution integration driver")

	for _, device := range devices {
		if !device.Enabled {
			d.logger.Info().
				Str("device_id", device.ID).
				Msg("Device disabled, skipping")
			continue
		}
		d.startDevice(device)
	}

	if d.apiServer != nil {
		if err := d.apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start integration API: %w", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	d.logger.Info().Msg("Driver started successfully")

	select {
	case sig := <-sigChan:
		d.logger.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		return d.Stop()
	case <-d.ctx.Done():
		return d.Stop()
	}
}

// Stop shuts down all pollers and the integration API. In-flight device
// requests get a bounded grace period.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	runtimes := make([]*deviceRuntime, 0, len(d.devices))
	for _, runtime := range d.devices {
		runtimes = append(runtimes, runtime)
	}
	d.mu.Unlock()

	d.logger.Info().Msg("Stopping driver")
	d.cancel()

	if d.apiServer != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.apiServer.Stop(stopCtx); err != nil {
			d.logger.Error().Err(err).Msg("Error stopping integration API")
		}
	}

	var wg sync.WaitGroup
	for _, runtime := range runtimes {
		wg.Add(1)
		go func(r *deviceRuntime) {
			defer wg.Done()
			r.poller.Stop()
		}(runtime)
	}
	wg.Wait()

	d.logger.Info().Msg("Driver stopped")
	return nil
}

// AddDevice registers a device and starts polling it immediately.
// Returns the assigned slot.
func (d *Daemon) AddDevice(device DeviceConfig) (int, error) {
	added, err := d.registry.Add(device)
	if err != nil {
		return 0, err
	}

	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()
	if running {
		d.startDevice(added)
	}

	return added.Slot, nil
}

// RenameDevice persists a new display name and pushes it into the live
// entities so the rename is visible without a restart.
func (d *Daemon) RenameDevice(id, name string) error {
	if err := d.registry.Rename(id, name); err != nil {
		return err
	}

	d.mu.Lock()
	runtime, ok := d.devices[id]
	if ok {
		runtime.config.Name = name
	}
	d.mu.Unlock()

	if ok {
		runtime.player.SetName(name)
		runtime.remote.SetName(name)
	}
	return nil
}

// RemoveDevice unregisters a device and promptly cancels its polling.
func (d *Daemon) RemoveDevice(id string) error {
	if _, err := d.registry.Remove(id); err != nil {
		return err
	}

	d.mu.Lock()
	runtime, ok := d.devices[id]
	delete(d.devices, id)
	d.mu.Unlock()

	if ok {
		runtime.poller.Stop()
	}
	return nil
}

// Entities returns all live entities across every device, in slot order.
func (d *Daemon) Entities() []entity.Entity {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var entities []entity.Entity
	for _, device := range d.registry.List() {
		runtime, ok := d.devices[device.ID]
		if !ok {
			continue
		}
		entities = append(entities, runtime.player, runtime.remote)
	}
	return entities
}

// Entity looks up a live entity by its id.
func (d *Daemon) Entity(entityID string) (entity.Entity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, runtime := range d.devices {
		if runtime.player.ID() == entityID {
			return runtime.player, nil
		}
		if runtime.remote.ID() == entityID {
			return runtime.remote, nil
		}
	}
	return nil, fmt.Errorf("%w: entity %s", ErrDeviceNotFound, entityID)
}

// HandleEntityCommand dispatches a framework command to the owning entity.
// Network failures surface as entity state, never as a panic or crash.
func (d *Daemon) HandleEntityCommand(ctx context.Context, entityID, cmdID string, params map[string]any) entity.StatusCode {
	target, err := d.Entity(entityID)
	if err != nil {
		return entity.StatusNotFound
	}
	return target.HandleCommand(ctx, cmdID, params)
}

// ConnectionState returns the current connection state for a device.
func (d *Daemon) ConnectionState(deviceID string) (rvolution.ConnectionState, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	runtime, ok := d.devices[deviceID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	return runtime.poller.ConnectionState(), nil
}

func (d *Daemon) startDevice(device DeviceConfig) {
	client := rvolution.NewClient(device.Address, device.Family, time.Duration(device.Timeout)*time.Second)
	player := entity.NewMediaPlayer(device.ID, device.Name, client)
	remote := entity.NewRemote(device.ID, device.Name, client)

	d.mu.Lock()
	if d.listener != nil {
		player.SetListener(d.listener)
		remote.SetListener(d.listener)
	}

	interval := time.Duration(d.registry.Driver().PollIntervalSeconds) * time.Second
	poller := NewPoller(device, client, interval, func(update StatusUpdate) {
		player.ApplyStatus(update.State, update.Snapshot, update.StatusSupported)
		remote.ApplyStatus(update.State, update.Snapshot, update.StatusSupported)
	})

	d.devices[device.ID] = &deviceRuntime{
		config: device,
		client: client,
		player: player,
		remote: remote,
		poller: poller,
	}
	d.mu.Unlock()

	poller.Start(d.ctx)

	d.logger.Info().
		Str("device_id", device.ID).
		Str("address", device.Address).
		Str("family", string(device.Family)).
		Msg("Device runtime started")
}
