package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStep(t *testing.T) {
	for i, s := range Steps {
		got, err := ParseStep(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
		assert.Equal(t, i, got.Index())
	}

	_, err := ParseStep("publish")
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Equal(t, -1, Step("publish").Index())
}

func TestCaption_JSON(t *testing.T) {
	c := Caption{At: 65 * time.Second, Text: "hi"}
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"01:05","text":"hi"}`, string(raw))

	var back Caption
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, c, back)

	assert.Error(t, json.Unmarshal([]byte(`{"at":"soon","text":"x"}`), &back))
}

func TestCatalogLookups(t *testing.T) {
	assert.Equal(t, "v1", DefaultVoice().ID)

	v, ok := FindVoice("v5")
	require.True(t, ok)
	assert.Equal(t, "Zephyr", v.VoiceName)

	v, ok = FindVoiceByName("Puck")
	require.True(t, ok)
	assert.Equal(t, "v2", v.ID)

	_, ok = FindVoice("v6")
	assert.False(t, ok)

	m, ok := FindMusic("m4")
	require.True(t, ok)
	assert.Equal(t, "Epic Journey", m.Title)
	_, ok = FindMusic("")
	assert.False(t, ok)
}
