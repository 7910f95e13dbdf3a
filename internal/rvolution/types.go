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

package rvolution

// Family identifies the hardware class of an R_volution device. The two
// families speak the same HTTP API but use different IR code tables.
type Family string

const (
	FamilyAmlogic Family = "amlogic" // PlayerOne 8K, Pro 8K, Mini
	FamilyPlayer  Family = "player"  // R_volution Players
)

// Valid reports whether f is one of the two supported families.
func (f Family) Valid() bool {
	return f == FamilyAmlogic || f == FamilyPlayer
}

// IRCode is a vendor-defined token representing a single remote button press.
type IRCode string

// DeviceInfo is the payload of the /device/info endpoint.
type DeviceInfo struct {
	ModelName       string `json:"model_name"`
	DeviceID        string `json:"device_id"`
	DeviceType      string `json:"device_type"`
	FirmwareVersion string `json:"firmware_version"`
}

// PlaybackState is the normalized playback state reported by a device.
type PlaybackState string

const (
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
	PlaybackStopped PlaybackState = "stopped"
	PlaybackUnknown PlaybackState = "unknown"
)

// StatusSnapshot is the normalized result of one /device/status poll.
// Pointer fields distinguish "device did not report this" from a zero
// value; a nil field must never be read as 0/false/"".
type StatusSnapshot struct {
	State           PlaybackState
	Title           *string
	PositionSeconds *int
	DurationSeconds *int
	Volume          *int
	Muted           *bool
}

// ConnectionState tracks per-device reachability as seen by the poller.
type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
	StateError        ConnectionState = "error"
)
