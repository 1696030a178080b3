package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEYS", "key-a, key-b,")
	t.Setenv("DEFAULT_LANG", "")
	t.Setenv("EXPORT_TICK", "")
	t.Setenv("AUDIO_SAMPLE_RATE", "")
	t.Setenv("PROXY_URLS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"key-a", "key-b"}, cfg.GeminiAPIKeys)
	assert.Equal(t, "vi", cfg.DefaultLang)
	assert.Equal(t, 24000, cfg.AudioSampleRate)
	assert.Equal(t, 50*time.Millisecond, cfg.ExportTick)
	assert.Equal(t, "gemini-2.5-flash-preview-tts", cfg.SpeechModel)
	assert.Empty(t, cfg.ProxyURLs)
	assert.Equal(t, int64(512)<<20, cfg.MaxUploadBytes)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEYS", "k")
	t.Setenv("DEFAULT_LANG", "EN")
	t.Setenv("EXPORT_TICK", "10ms")
	t.Setenv("GEMINI_API_BASE_URL", "http://localhost:9999/")
	t.Setenv("PROXY_URLS", "http://p1:1,http://p2:2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.DefaultLang)
	assert.Equal(t, 10*time.Millisecond, cfg.ExportTick)
	assert.Equal(t, "http://localhost:9999", cfg.GeminiBaseURL)
	assert.Len(t, cfg.ProxyURLs, 2)
}

func TestLoadConfig_MissingKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEYS", " ")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEYS")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Setenv("GEMINI_API_KEYS", "k")

	t.Setenv("EXPORT_TICK", "fast")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "EXPORT_TICK")

	t.Setenv("EXPORT_TICK", "")
	t.Setenv("AUDIO_SAMPLE_RATE", "-1")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "AUDIO_SAMPLE_RATE")

	t.Setenv("AUDIO_SAMPLE_RATE", "")
	t.Setenv("DEFAULT_LANG", "fr")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "DEFAULT_LANG")
}
