package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslator_Match(t *testing.T) {
	tr, err := New("vi")
	require.NoError(t, err)

	assert.Equal(t, "vi", tr.Match(""))
	assert.Equal(t, "en", tr.Match("en-US,en;q=0.9"))
	assert.Equal(t, "vi", tr.Match("vi-VN"))
	assert.Equal(t, "vi", tr.Match("ja"))

	en, err := New("en")
	require.NoError(t, err)
	assert.Equal(t, "en", en.Match("de"))
}

func TestLocalizer_Text(t *testing.T) {
	tr, err := New("vi")
	require.NoError(t, err)

	assert.Equal(t, "Tải video", tr.Localizer("vi").Text("step_upload_label"))
	assert.Equal(t, "Upload", tr.Localizer("en").Text("step_upload_label"))
	assert.Equal(t, "no_such_message", tr.Localizer("en").Text("no_such_message"))
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Vietnamese", LanguageName("vi"))
	assert.Equal(t, "English", LanguageName("en"))
	assert.Equal(t, "English", LanguageName("!!"))
}
