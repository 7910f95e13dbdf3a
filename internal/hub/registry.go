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
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rvolution/internal/logger"
)

// MaxDevices is the number of registry slots.
const MaxDevices = 10

// Registry holds the ordered set of configured devices and persists it to
// the flat config store. Reads dominate after setup; writes happen only
// during configuration actions.
type Registry struct {
	mu     sync.RWMutex
	config *Config
	path   string
	logger zerolog.Logger
}

// NewRegistry wraps a loaded Config. path is where Persist writes.
func NewRegistry(config *Config, path string) *Registry {
	registry := &Registry{
		config: config,
		path:   path,
		logger: logger.Component("registry"),
	}
	registry.sortLocked()
	return registry
}

// Add registers a device into the lowest free slot and persists the store.
// Returns the stored record, with slot (and id, if absent) assigned.
func (r *Registry) Add(device DeviceConfig) (DeviceConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.config.Devices) >= MaxDevices {
		return DeviceConfig{}, fmt.Errorf("%w: %d devices configured", ErrCapacityExceeded, len(r.config.Devices))
	}

	if device.ID == "" {
		device.ID = "rvolution_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	}
	for _, existing := range r.config.Devices {
		if existing.ID == device.ID {
			return DeviceConfig{}, fmt.Errorf("%w: %s", ErrDuplicateDevice, device.ID)
		}
		if existing.Address == device.Address {
			return DeviceConfig{}, fmt.Errorf("%w: address %s already registered as %s", ErrDuplicateDevice, device.Address, existing.ID)
		}
	}

	if device.Timeout <= 0 {
		device.Timeout = 10
	}
	device.Enabled = true
	device.Slot = r.lowestFreeSlotLocked()

	if err := device.Validate(); err != nil {
		return DeviceConfig{}, err
	}

	r.config.Devices = append(r.config.Devices, device)
	r.sortLocked()

	if err := SaveConfig(r.config, r.path); err != nil {
		// Roll back the in-memory add so memory and disk stay in step.
		r.removeLocked(device.ID)
		return DeviceConfig{}, err
	}

	r.logger.Info().
		Str("device_id", device.ID).
		Str("address", device.Address).
		Str("family", string(device.Family)).
		Int("slot", device.Slot).
		Msg("Device added to registry")

	return device, nil
}

// Remove deletes a device by id, persists the store, and returns the
// removed record.
func (r *Registry) Remove(id string) (DeviceConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed, ok := r.removeLocked(id)
	if !ok {
		return DeviceConfig{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	if err := SaveConfig(r.config, r.path); err != nil {
		// Roll back the in-memory remove so memory and disk stay in step.
		r.config.Devices = append(r.config.Devices, removed)
		r.sortLocked()
		return DeviceConfig{}, err
	}

	r.logger.Info().
		Str("device_id", id).
		Int("slot", removed.Slot).
		Msg("Device removed from registry")

	return removed, nil
}

// Rename updates a device's display name, the only mutable runtime field.
func (r *Registry) Rename(id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.config.Devices {
		if r.config.Devices[i].ID == id {
			r.config.Devices[i].Name = name
			return SaveConfig(r.config, r.path)
		}
	}
	return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
}

// Get returns the device record with the given id.
func (r *Registry) Get(id string) (DeviceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, device := range r.config.Devices {
		if device.ID == id {
			return device, nil
		}
	}
	return DeviceConfig{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
}

// List returns all device records in slot order. The slice is a copy.
func (r *Registry) List() []DeviceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]DeviceConfig, len(r.config.Devices))
	copy(devices, r.config.Devices)
	return devices
}

// Count returns the number of configured devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.config.Devices)
}

// Driver returns the process-wide driver settings.
func (r *Registry) Driver() DriverConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Driver
}

// Persist writes the current registry state to the config store.
func (r *Registry) Persist() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return SaveConfig(r.config, r.path)
}

func (r *Registry) removeLocked(id string) (DeviceConfig, bool) {
	for i, device := range r.config.Devices {
		if device.ID == id {
			r.config.Devices = append(r.config.Devices[:i], r.config.Devices[i+1:]...)
			return device, true
		}
	}
	return DeviceConfig{}, false
}

func (r *Registry) lowestFreeSlotLocked() int {
	used := make(map[int]bool, len(r.config.Devices))
	for _, device := range r.config.Devices {
		used[device.Slot] = true
	}
	for slot := 1; slot <= MaxDevices; slot++ {
		if !used[slot] {
			return slot
		}
	}
	return MaxDevices // unreachable, capacity checked by caller
}

func (r *Registry) sortLocked() {
	sort.SliceStable(r.config.Devices, func(i, j int) bool {
		return r.config.Devices[i].Slot < r.config.Devices[j].Slot
	})
}
