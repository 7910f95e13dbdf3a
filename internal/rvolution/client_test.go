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

package rvolution_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvolution/internal/rvolution"
)

// Test helper to create a client pointed at a mock device
func createTestClient(serverURL string, family rvolution.Family) *rvolution.Client {
	address := strings.TrimPrefix(serverURL, "http://")
	return rvolution.NewClient(address, family, 0)
}

func TestTestConnection(t *testing.T) {
	t.Run("reachable device returns true", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		assert.True(t, client.TestConnection(context.Background()))
	})

	t.Run("unreachable device returns false", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // Close immediately so the port refuses connections

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		assert.False(t, client.TestConnection(context.Background()))
	})
}

func TestFetchInfo(t *testing.T) {
	t.Run("decodes device info", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/device/info", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"model_name":"PlayerOne 8K","device_id":"abc123","device_type":"player","firmware_version":"2.1.0"}`))
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		info, err := client.FetchInfo(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "PlayerOne 8K", info.ModelName)
		assert.Equal(t, "abc123", info.DeviceID)
		assert.Equal(t, "2.1.0", info.FirmwareVersion)
	})

	t.Run("non-200 yields malformed response error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		_, err := client.FetchInfo(context.Background())

		assert.ErrorIs(t, err, rvolution.ErrMalformedResponse)
	})

	t.Run("connection refused yields unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		_, err := client.FetchInfo(context.Background())

		assert.ErrorIs(t, err, rvolution.ErrUnreachable)
	})
}

func TestFetchStatus(t *testing.T) {
	t.Run("normalizes full status payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/device/status", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"state":"playing","title":"Dune","position":120.7,"duration":9120,"volume":35,"muted":false}`))
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyPlayer)
		snapshot, err := client.FetchStatus(context.Background())

		require.NoError(t, err)
		assert.Equal(t, rvolution.PlaybackPlaying, snapshot.State)
		require.NotNil(t, snapshot.Title)
		assert.Equal(t, "Dune", *snapshot.Title)
		require.NotNil(t, snapshot.PositionSeconds)
		assert.Equal(t, 120, *snapshot.PositionSeconds)
		require.NotNil(t, snapshot.DurationSeconds)
		assert.Equal(t, 9120, *snapshot.DurationSeconds)
		require.NotNil(t, snapshot.Volume)
		assert.Equal(t, 35, *snapshot.Volume)
		require.NotNil(t, snapshot.Muted)
		assert.False(t, *snapshot.Muted)
	})

	t.Run("accepts legacy playback and mute keys", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"playback":"pause","mute":true}`))
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyPlayer)
		snapshot, err := client.FetchStatus(context.Background())

		require.NoError(t, err)
		assert.Equal(t, rvolution.PlaybackPaused, snapshot.State)
		require.NotNil(t, snapshot.Muted)
		assert.True(t, *snapshot.Muted)
	})

	t.Run("missing fields stay nil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"state":"stopped"}`))
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyPlayer)
		snapshot, err := client.FetchStatus(context.Background())

		require.NoError(t, err)
		assert.Equal(t, rvolution.PlaybackStopped, snapshot.State)
		assert.Nil(t, snapshot.Title)
		assert.Nil(t, snapshot.PositionSeconds)
		assert.Nil(t, snapshot.DurationSeconds)
		assert.Nil(t, snapshot.Volume)
		assert.Nil(t, snapshot.Muted)
	})

	t.Run("404 yields unsupported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		_, err := client.FetchStatus(context.Background())

		assert.ErrorIs(t, err, rvolution.ErrUnsupported)
	})

	t.Run("501 yields unsupported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotImplemented)
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		_, err := client.FetchStatus(context.Background())

		assert.ErrorIs(t, err, rvolution.ErrUnsupported)
	})

	t.Run("invalid JSON yields malformed response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>not json</html>`))
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		_, err := client.FetchStatus(context.Background())

		assert.ErrorIs(t, err, rvolution.ErrMalformedResponse)
	})

	t.Run("slow device yields timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		address := strings.TrimPrefix(server.URL, "http://")
		client := rvolution.NewClient(address, rvolution.FamilyAmlogic, 50*time.Millisecond)
		_, err := client.FetchStatus(context.Background())

		assert.ErrorIs(t, err, rvolution.ErrTimeout)
	})
}

func TestSendCommand(t *testing.T) {
	t.Run("sends ir_code query parameters", func(t *testing.T) {
		var gotPath, gotCmd, gotCode string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotCmd = r.URL.Query().Get("cmd")
			gotCode = r.URL.Query().Get("ir_code")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		err := client.SendCommand(context.Background(), "B24D4040")

		require.NoError(t, err)
		assert.Equal(t, "/cgi-bin/do", gotPath)
		assert.Equal(t, "ir_code", gotCmd)
		assert.Equal(t, "B24D4040", gotCode)
	})

	t.Run("non-200 yields rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "busy", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		err := client.SendCommand(context.Background(), "B24D4040")

		require.Error(t, err)
		assert.ErrorIs(t, err, rvolution.ErrRejected)
		assert.Contains(t, err.Error(), "busy")
	})
}

func TestSend(t *testing.T) {
	t.Run("resolves logical name against the family catalog", func(t *testing.T) {
		var gotCode string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCode = r.URL.Query().Get("ir_code")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyPlayer)
		err := client.Send(context.Background(), "Power Toggle")

		require.NoError(t, err)
		assert.Equal(t, "EC4D4040", gotCode)
	})

	t.Run("unknown name never reaches the device", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
		}))
		defer server.Close()

		client := createTestClient(server.URL, rvolution.FamilyAmlogic)
		err := client.Send(context.Background(), "R_video")

		assert.ErrorIs(t, err, rvolution.ErrUnknownCommand)
		assert.Zero(t, requests)
	})
}
