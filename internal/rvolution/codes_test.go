package rvolution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvolution/internal/rvolution"
)

func TestCommands(t *testing.T) {
	t.Run("amlogic catalog has 47 commands", func(t *testing.T) {
		commands := rvolution.Commands(rvolution.FamilyAmlogic)
		assert.Len(t, commands, 47)
	})

	t.Run("player catalog has 49 commands", func(t *testing.T) {
		commands := rvolution.Commands(rvolution.FamilyPlayer)
		assert.Len(t, commands, 49)
	})

	t.Run("player catalog is a superset of amlogic", func(t *testing.T) {
		amlogic := rvolution.Commands(rvolution.FamilyAmlogic)
		player := rvolution.Commands(rvolution.FamilyPlayer)

		playerSet := make(map[string]bool, len(player))
		for _, name := range player {
			playerSet[name] = true
		}
		for _, name := range amlogic {
			assert.True(t, playerSet[name], "player catalog missing %q", name)
		}
	})

	t.Run("player extras are not in amlogic catalog", func(t *testing.T) {
		assert.False(t, rvolution.Supports(rvolution.FamilyAmlogic, "R_video"))
		assert.False(t, rvolution.Supports(rvolution.FamilyAmlogic, "HDMI/XMOS Audio Toggle"))
		assert.True(t, rvolution.Supports(rvolution.FamilyPlayer, "R_video"))
		assert.True(t, rvolution.Supports(rvolution.FamilyPlayer, "HDMI/XMOS Audio Toggle"))
	})

	t.Run("every listed command resolves to a code", func(t *testing.T) {
		for _, family := range []rvolution.Family{rvolution.FamilyAmlogic, rvolution.FamilyPlayer} {
			for _, name := range rvolution.Commands(family) {
				code, err := rvolution.Resolve(family, name)
				require.NoError(t, err, "family %s command %q", family, name)
				assert.NotEmpty(t, code)
			}
		}
	})

	t.Run("order starts with power group", func(t *testing.T) {
		commands := rvolution.Commands(rvolution.FamilyAmlogic)
		require.GreaterOrEqual(t, len(commands), 3)
		assert.Equal(t, "Power Toggle", commands[0])
		assert.Equal(t, "Power On", commands[1])
		assert.Equal(t, "Power Off", commands[2])
	})
}

func TestResolve(t *testing.T) {
	t.Run("families resolve distinct codes for the same name", func(t *testing.T) {
		amlogic, err := rvolution.Resolve(rvolution.FamilyAmlogic, "Power Toggle")
		require.NoError(t, err)
		player, err := rvolution.Resolve(rvolution.FamilyPlayer, "Power Toggle")
		require.NoError(t, err)

		assert.Equal(t, rvolution.IRCode("B24D4040"), amlogic)
		assert.Equal(t, rvolution.IRCode("EC4D4040"), player)
	})

	t.Run("unknown command returns ErrUnknownCommand", func(t *testing.T) {
		_, err := rvolution.Resolve(rvolution.FamilyAmlogic, "Warp Drive")
		require.Error(t, err)
		assert.ErrorIs(t, err, rvolution.ErrUnknownCommand)
	})

	t.Run("player extra is unknown to amlogic", func(t *testing.T) {
		_, err := rvolution.Resolve(rvolution.FamilyAmlogic, "R_video")
		assert.ErrorIs(t, err, rvolution.ErrUnknownCommand)
	})

	t.Run("invalid family errors", func(t *testing.T) {
		_, err := rvolution.Resolve(rvolution.Family("roku"), "Power Toggle")
		assert.Error(t, err)
	})
}
