package recognition

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/facturaIA/amount-extractor-bot/internal/models"
	"gopkg.in/yaml.v3"
)

// Tesseract page segmentation modes used by the built-in profiles
const (
	PSMAuto        = 3
	PSMSingleBlock = 6
)

// ErrNoProfiles is returned when a profile list is empty
var ErrNoProfiles = errors.New("no recognition profiles configured")

// DefaultProfiles returns the built-in trial order.
// The first profile restricts output to the characters of a Japanese card
// statement total line; the others widen the search.
func DefaultProfiles() []models.RecognitionProfile {
	return []models.RecognitionProfile{
		{
			Engine:      models.EngineTesseract,
			Language:    "jpn+eng",
			PageSegMode: PSMSingleBlock,
			EngineMode:  models.EngineModeLSTM,
			Whitelist:   "0123456789,円ご利用金額合計",
			Variables: map[string]string{
				"preserve_interword_spaces": "1",
			},
		},
		{
			Engine:      models.EngineTesseract,
			Language:    "jpn",
			PageSegMode: PSMAuto,
			EngineMode:  models.EngineModeLSTM,
		},
		{
			Engine:      models.EngineTesseract,
			Language:    "eng",
			PageSegMode: PSMSingleBlock,
			Whitelist:   "0123456789,¥",
		},
	}
}

// profileFile is the on-disk layout of a profile list
type profileFile struct {
	Profiles []models.RecognitionProfile `yaml:"profiles"`
}

// LoadProfiles decodes an ordered profile list from YAML
func LoadProfiles(r io.Reader) ([]models.RecognitionProfile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file profileFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoProfiles
		}
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}

	if len(file.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	for i := range file.Profiles {
		p := &file.Profiles[i]
		if p.Engine == "" {
			p.Engine = models.EngineTesseract
		}
		if err := validateProfile(*p); err != nil {
			return nil, fmt.Errorf("profile %d: %w", i+1, err)
		}
	}

	return file.Profiles, nil
}

// LoadProfilesFile reads a profile list from path
func LoadProfilesFile(path string) ([]models.RecognitionProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profiles file: %w", err)
	}
	defer f.Close()

	return LoadProfiles(f)
}

func validateProfile(p models.RecognitionProfile) error {
	switch p.Engine {
	case models.EngineTesseract, models.EngineOpenAI, models.EngineGemini, models.EngineOllama:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngine, p.Engine)
	}

	if p.Language == "" && p.Name == "" {
		return errors.New("language or name is required")
	}

	switch p.EngineMode {
	case models.EngineModeDefault, models.EngineModeLegacy, models.EngineModeLSTM, models.EngineModeCombined:
	default:
		return fmt.Errorf("unknown engine mode %q", p.EngineMode)
	}

	if p.PageSegMode < 0 || p.PageSegMode > 13 {
		return fmt.Errorf("page segmentation mode %d out of range", p.PageSegMode)
	}

	return nil
}
