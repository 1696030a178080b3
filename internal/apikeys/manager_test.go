package apikeys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewManager_NoKeys(t *testing.T) {
	_, err := NewManager(nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoKeysAvailable)

	_, err = NewManager([]string{"", "  "}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoKeysAvailable)
}

func TestKeyManager_RotateWraps(t *testing.T) {
	km, err := NewManager([]string{"a", " b "}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, km.Len())

	slot, key := km.Current()
	assert.Equal(t, 0, slot)
	assert.Equal(t, "a", key)

	require.NoError(t, km.Rotate(0))
	slot, key = km.Current()
	assert.Equal(t, 1, slot)
	assert.Equal(t, "b", key)

	assert.ErrorIs(t, km.Rotate(1), ErrAllKeysExhausted)
	_, key = km.Current()
	assert.Equal(t, "a", key)
}

func TestKeyManager_StaleRotateIsIgnored(t *testing.T) {
	km, err := NewManager([]string{"a", "b", "c"}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, km.Rotate(0))
	// a second caller that also failed on slot 0 must not skip "b"
	require.NoError(t, km.Rotate(0))

	_, key := km.Current()
	assert.Equal(t, "b", key)
}
