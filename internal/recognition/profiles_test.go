package recognition

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/facturaIA/amount-extractor-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfiles(t *testing.T) {
	profiles := DefaultProfiles()

	require.Len(t, profiles, 3)
	assert.Equal(t, []string{"jpn+eng", "jpn", "eng"}, []string{
		profiles[0].Identifier(),
		profiles[1].Identifier(),
		profiles[2].Identifier(),
	})
	assert.Equal(t, PSMSingleBlock, profiles[0].PageSegMode)
	assert.Equal(t, models.EngineModeLSTM, profiles[0].EngineMode)
	assert.Equal(t, "1", profiles[0].Variables["preserve_interword_spaces"])
	assert.Equal(t, PSMAuto, profiles[1].PageSegMode)
	assert.Equal(t, models.EngineModeDefault, profiles[2].EngineMode)
	assert.Contains(t, profiles[2].Whitelist, "¥")

	for _, p := range profiles {
		assert.NoError(t, validateProfile(p))
	}
}

func TestLoadProfiles(t *testing.T) {
	doc := `
profiles:
  - language: jpn
    page_seg_mode: 6
    engine_mode: lstm
    whitelist: "0123456789,円"
    variables:
      preserve_interword_spaces: "1"
  - name: vision
    engine: openai
    language: jpn
`
	profiles, err := LoadProfiles(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, models.EngineTesseract, profiles[0].Engine)
	assert.Equal(t, "jpn", profiles[0].Identifier())
	assert.Equal(t, 6, profiles[0].PageSegMode)
	assert.Equal(t, "0123456789,円", profiles[0].Whitelist)
	assert.Equal(t, "1", profiles[0].Variables["preserve_interword_spaces"])
	assert.Equal(t, models.EngineOpenAI, profiles[1].Engine)
	assert.Equal(t, "vision", profiles[1].Identifier())
}

func TestLoadProfiles_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty document", doc: ""},
		{name: "empty list", doc: "profiles: []\n"},
		{name: "unknown field", doc: "profiles:\n  - language: eng\n    psm: 6\n"},
		{name: "unknown engine", doc: "profiles:\n  - language: eng\n    engine: abbyy\n"},
		{name: "unknown engine mode", doc: "profiles:\n  - language: eng\n    engine_mode: turbo\n"},
		{name: "psm out of range", doc: "profiles:\n  - language: eng\n    page_seg_mode: 42\n"},
		{name: "missing language", doc: "profiles:\n  - whitelist: \"0123\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfiles(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := LoadProfiles(strings.NewReader("profiles:\n  - language: eng\n    engine: abbyy\n"))
	assert.ErrorIs(t, err, ErrUnknownEngine)

	_, err = LoadProfiles(strings.NewReader("profiles: []\n"))
	assert.ErrorIs(t, err, ErrNoProfiles)
}

func TestLoadProfilesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles:\n  - language: eng\n"), 0o600))

	profiles, err := LoadProfilesFile(path)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "eng", profiles[0].Language)

	_, err = LoadProfilesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
