package hub_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvolution/internal/entity"
	"rvolution/internal/hub"
	"rvolution/internal/rvolution"
)

// fakePlayer is a mock device that records received IR codes
type fakePlayer struct {
	server *httptest.Server

	mu    sync.Mutex
	codes []string
}

func newFakePlayer(t *testing.T) *fakePlayer {
	t.Helper()
	player := &fakePlayer{}
	player.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cgi-bin/do":
			player.mu.Lock()
			player.codes = append(player.codes, r.URL.Query().Get("ir_code"))
			player.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		case "/device/status":
			w.Write([]byte(`{"state":"stopped"}`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(player.server.Close)
	return player
}

func (p *fakePlayer) address() string {
	return strings.TrimPrefix(p.server.URL, "http://")
}

func (p *fakePlayer) sentCodes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.codes))
	copy(out, p.codes)
	return out
}

// startTestDaemon runs a daemon with one Amlogic and one Player device and
// blocks until both device runtimes are live.
func startTestDaemon(t *testing.T) (*hub.Daemon, *fakePlayer, *fakePlayer) {
	t.Helper()

	amlogic := newFakePlayer(t)
	player := newFakePlayer(t)

	registry := createTestRegistry(t)
	_, err := registry.Add(hub.DeviceConfig{
		ID:      "rvolution_amlogic",
		Name:    "Living Room",
		Address: amlogic.address(),
		Family:  rvolution.FamilyAmlogic,
		Enabled: true,
	})
	require.NoError(t, err)
	_, err = registry.Add(hub.DeviceConfig{
		ID:      "rvolution_player",
		Name:    "Cinema",
		Address: player.address(),
		Family:  rvolution.FamilyPlayer,
		Enabled: true,
	})
	require.NoError(t, err)

	daemon := hub.NewDaemon(registry)
	go daemon.Start()
	t.Cleanup(func() { daemon.Stop() })

	deadline := time.After(3 * time.Second)
	for len(daemon.Entities()) < 4 {
		select {
		case <-deadline:
			t.Fatal("daemon did not start all device runtimes")
		case <-time.After(10 * time.Millisecond):
		}
	}

	return daemon, amlogic, player
}

func TestDaemonEntities(t *testing.T) {
	daemon, _, _ := startTestDaemon(t)

	entities := daemon.Entities()
	require.Len(t, entities, 4)

	// Slot order: slot 1 device first, media player before remote
	assert.Equal(t, "mp_rvolution_amlogic", entities[0].ID())
	assert.Equal(t, "remote_rvolution_amlogic", entities[1].ID())
	assert.Equal(t, "mp_rvolution_player", entities[2].ID())
	assert.Equal(t, "remote_rvolution_player", entities[3].ID())
}

func TestDaemonHandleEntityCommand(t *testing.T) {
	t.Run("command reaches only the owning device with its family code", func(t *testing.T) {
		daemon, amlogic, player := startTestDaemon(t)

		code := daemon.HandleEntityCommand(context.Background(), "mp_rvolution_player", entity.CmdToggle, nil)

		assert.Equal(t, entity.StatusOK, code)
		assert.Equal(t, []string{"EC4D4040"}, player.sentCodes(), "player device gets the player family code")
		assert.Empty(t, amlogic.sentCodes(), "sibling device must not receive the command")
	})

	t.Run("amlogic entity resolves amlogic codes", func(t *testing.T) {
		daemon, amlogic, _ := startTestDaemon(t)

		code := daemon.HandleEntityCommand(context.Background(), "mp_rvolution_amlogic", entity.CmdToggle, nil)

		assert.Equal(t, entity.StatusOK, code)
		assert.Equal(t, []string{"B24D4040"}, amlogic.sentCodes())
	})

	t.Run("unknown entity is not found", func(t *testing.T) {
		daemon, _, _ := startTestDaemon(t)

		code := daemon.HandleEntityCommand(context.Background(), "mp_rvolution_ghost", entity.CmdToggle, nil)
		assert.Equal(t, entity.StatusNotFound, code)
	})

	t.Run("remote send_cmd routes through the remote entity", func(t *testing.T) {
		daemon, _, player := startTestDaemon(t)

		code := daemon.HandleEntityCommand(context.Background(), "remote_rvolution_player", entity.CmdSend, map[string]any{
			"command": "R_video",
		})

		assert.Equal(t, entity.StatusOK, code)
		assert.Equal(t, []string{"EC134040"}, player.sentCodes())
	})
}

func TestDaemonRemoveDevice(t *testing.T) {
	daemon, _, _ := startTestDaemon(t)

	require.NoError(t, daemon.RemoveDevice("rvolution_amlogic"))

	entities := daemon.Entities()
	require.Len(t, entities, 2)
	assert.Equal(t, "mp_rvolution_player", entities[0].ID())

	_, err := daemon.ConnectionState("rvolution_amlogic")
	assert.ErrorIs(t, err, hub.ErrDeviceNotFound)
}

func TestDaemonRenameDevice(t *testing.T) {
	daemon, _, _ := startTestDaemon(t)

	require.NoError(t, daemon.RenameDevice("rvolution_amlogic", "Bedroom"))

	// The rename must be visible on the live entities, not just on disk
	player, err := daemon.Entity("mp_rvolution_amlogic")
	require.NoError(t, err)
	assert.Contains(t, player.Name(), "Bedroom")

	remote, err := daemon.Entity("remote_rvolution_amlogic")
	require.NoError(t, err)
	assert.Contains(t, remote.Name(), "Bedroom")

	stored, err := daemon.Registry().Get("rvolution_amlogic")
	require.NoError(t, err)
	assert.Equal(t, "Bedroom", stored.Name)

	assert.ErrorIs(t, daemon.RenameDevice("rvolution_missing", "x"), hub.ErrDeviceNotFound)
}

func TestDaemonAddDeviceWhileRunning(t *testing.T) {
	daemon, _, _ := startTestDaemon(t)

	extra := newFakePlayer(t)
	slot, err := daemon.AddDevice(hub.DeviceConfig{
		Name:    "Bedroom",
		Address: extra.address(),
		Family:  rvolution.FamilyAmlogic,
		Enabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, slot)

	assert.Len(t, daemon.Entities(), 6, "new device runtime starts immediately")
}

func TestDaemonConnectionState(t *testing.T) {
	daemon, _, _ := startTestDaemon(t)

	deadline := time.After(3 * time.Second)
	for {
		state, err := daemon.ConnectionState("rvolution_player")
		require.NoError(t, err)
		if state == rvolution.StateConnected {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("device never reached connected state, last state %s", state)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDaemonAttributeListener(t *testing.T) {
	daemon, _, _ := startTestDaemon(t)

	var mu sync.Mutex
	seen := make(map[string]bool)
	daemon.SetAttributeListener(func(entityID string, changed map[string]any) {
		mu.Lock()
		defer mu.Unlock()
		seen[entityID] = true
	})

	// Poll updates should fan out through the listener for every entity
	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		count := len(seen)
		mu.Unlock()
		if count >= 4 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("listener saw only %d entities", count)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
