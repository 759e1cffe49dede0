package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "authhub/pkg/domain-errors"
)

func TestToken(t *testing.T) {
	t.Run("hex encodes requested byte count", func(t *testing.T) {
		tok, err := Token(16)
		require.NoError(t, err)
		assert.Len(t, tok, 32)
	})

	t.Run("successive tokens differ", func(t *testing.T) {
		a, err := Token(32)
		require.NoError(t, err)
		b, err := Token(32)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestHashAndVerify(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		hash, err := Hash("password123")
		require.NoError(t, err)
		assert.NotEqual(t, "password123", hash)
		assert.NoError(t, Verify("password123", hash))
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		hash, err := Hash("password123")
		require.NoError(t, err)
		err = Verify("password124", hash)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("empty password rejected at hash time", func(t *testing.T) {
		_, err := Hash("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestVerifyDummyDoesNotPanic(t *testing.T) {
	VerifyDummy("anything")
}
