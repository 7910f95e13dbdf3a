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
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"rvolution/internal/logger"
	"rvolution/internal/rvolution"
)

// Config is the driver configuration persisted as a flat YAML file in the
// host-provided config directory.
type Config struct {
	Driver  DriverConfig   `yaml:"driver"`
	Devices []DeviceConfig `yaml:"devices"`
}

// DriverConfig contains process-wide settings.
type DriverConfig struct {
	ListenAddress       string `yaml:"listen_address"`        // integration API bind address
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"` // status poll cadence per device
	APISecret           string `yaml:"api_secret"`            // HS256 secret for API tokens
}

// DeviceConfig is one configured device record. Immutable during runtime
// except Name.
type DeviceConfig struct {
	Slot    int              `yaml:"slot"` // 1..MaxDevices, stable across restarts
	ID      string           `yaml:"id"`
	Name    string           `yaml:"name"`
	Address string           `yaml:"address"` // host or host:port, default port 80
	Family  rvolution.Family `yaml:"family"`
	Timeout int              `yaml:"timeout_seconds"`
	Enabled bool             `yaml:"enabled"`
}

// configFile defers device decoding so a single corrupt record can be
// skipped without losing the rest of the store.
type configFile struct {
	Driver  DriverConfig `yaml:"driver"`
	Devices []yaml.Node  `yaml:"devices"`
	Version string       `yaml:"version"`
}

// Validate checks the invariants of a single device record.
func (d *DeviceConfig) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: device id is required", ErrCorruptConfig)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: device name is required", ErrCorruptConfig)
	}
	if !d.Family.Valid() {
		return fmt.Errorf("%w: invalid device family %q", ErrCorruptConfig, d.Family)
	}
	if d.Slot < 1 || d.Slot > MaxDevices {
		return fmt.Errorf("%w: slot %d outside 1..%d", ErrCorruptConfig, d.Slot, MaxDevices)
	}
	return validateAddress(d.Address)
}

func validateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("%w: device address is required", ErrCorruptConfig)
	}
	host := address
	if strings.Contains(address, ":") {
		h, port, err := net.SplitHostPort(address)
		if err != nil {
			return fmt.Errorf("%w: invalid address %q: %v", ErrCorruptConfig, address, err)
		}
		if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("%w: invalid port in address %q", ErrCorruptConfig, address)
		}
		host = h
	}
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("%w: invalid address %q", ErrCorruptConfig, address)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file. Corrupt device records
// are skipped with a warning; an unreadable or unparsable store is fatal.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	log := logger.Component("config")
	config := &Config{Driver: file.Driver}

	for i, node := range file.Devices {
		var device DeviceConfig
		if err := node.Decode(&device); err != nil {
			log.Warn().
				Int("record", i).
				Err(err).
				Msg("Skipping unreadable device record")
			continue
		}
		if err := device.Validate(); err != nil {
			log.Warn().
				Int("record", i).
				Str("device_id", device.ID).
				Err(err).
				Msg("Skipping invalid device record")
			continue
		}
		config.Devices = append(config.Devices, device)
	}

	config.applyDefaults()
	return config, nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	out := struct {
		Driver  DriverConfig   `yaml:"driver"`
		Devices []DeviceConfig `yaml:"devices"`
		Version string         `yaml:"version"`
	}{
		Driver:  config.Driver,
		Devices: config.Devices,
		Version: "1.0.0",
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// NewDefaultConfig creates a configuration with sane driver defaults and no
// devices.
func NewDefaultConfig() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Driver.ListenAddress == "" {
		c.Driver.ListenAddress = ":9090"
	}
	if c.Driver.PollIntervalSeconds <= 0 {
		c.Driver.PollIntervalSeconds = 5
	}
	if c.Driver.APISecret == "" {
		c.Driver.APISecret = uuid.New().String()
	}
	for i := range c.Devices {
		if c.Devices[i].Timeout <= 0 {
			c.Devices[i].Timeout = 10
		}
	}
}
