package integration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvolution/internal/integration"
)

func TestJWTService(t *testing.T) {
	t.Run("generated token validates", func(t *testing.T) {
		service := integration.NewJWTService("test-secret")

		token, err := service.GenerateToken("remote-ui")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := service.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "remote-ui", claims.Client)
		assert.Equal(t, "rvolution-driver", claims.Issuer)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		service := integration.NewJWTService("test-secret")
		other := integration.NewJWTService("other-secret")

		token, err := other.GenerateToken("remote-ui")
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		service := integration.NewJWTService("test-secret")

		_, err := service.ValidateToken("not.a.token")
		assert.Error(t, err)
	})
}
