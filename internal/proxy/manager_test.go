package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewManager_SkipsInvalid(t *testing.T) {
	pm, err := NewManager([]string{"", "::bad::", "http://proxy-a:3128", " http://proxy-b:3128 "}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, pm.Len())
	assert.Equal(t, "proxy-a:3128", pm.Current().Host)
}

func TestNewManager_Empty(t *testing.T) {
	_, err := NewManager([]string{""}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoProxiesAvailable)
}

func TestManager_RotateAndProxyFunc(t *testing.T) {
	pm, err := NewManager([]string{"http://a:1", "http://b:2"}, zap.NewNop())
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	u, err := pm.ProxyFunc(req)
	require.NoError(t, err)
	assert.Equal(t, "a:1", u.Host)

	require.NoError(t, pm.Rotate())
	u, _ = pm.Transport().Proxy(req)
	assert.Equal(t, "b:2", u.Host)

	assert.ErrorIs(t, pm.Rotate(), ErrAllProxiesExhausted)
	assert.Equal(t, "a:1", pm.Current().Host)
}
