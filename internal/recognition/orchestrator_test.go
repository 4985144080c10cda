package recognition

import (
	"context"
	"errors"
	"testing"

	"github.com/facturaIA/amount-extractor-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAttempt maps profile identifiers to canned OCR output
func stubAttempt(texts map[string]string, failures map[string]error, calls *[]string) AttemptFunc {
	return func(_ context.Context, p models.RecognitionProfile) (string, error) {
		*calls = append(*calls, p.Identifier())
		if err, ok := failures[p.Identifier()]; ok {
			return "", err
		}
		return texts[p.Identifier()], nil
	}
}

func threeProfiles() []models.RecognitionProfile {
	return []models.RecognitionProfile{
		{Language: "jpn+eng"},
		{Language: "jpn"},
		{Language: "eng"},
	}
}

func TestRun_SecondProfileSucceeds(t *testing.T) {
	var calls []string
	attempt := stubAttempt(map[string]string{
		"jpn+eng": "ご利用金額合計",
		"jpn":     "回数3 ご利用金額合計12,500円",
		"eng":     "99999",
	}, nil, &calls)

	result := Run(context.Background(), threeProfiles(), attempt)

	require.Len(t, result.Attempts, 2)
	assert.True(t, result.Found)
	assert.Equal(t, int64(12500), result.Amount)
	assert.Equal(t, result.Attempts[1].Amount, result.Amount)
	assert.False(t, result.Attempts[0].Found)
	assert.True(t, result.Attempts[1].Found)
	assert.Equal(t, []string{"jpn+eng", "jpn"}, calls)
}

func TestRun_FirstProfileShortCircuits(t *testing.T) {
	var calls []string
	attempt := stubAttempt(map[string]string{
		"jpn+eng": "12,500円",
		"jpn":     "30,000円",
	}, nil, &calls)

	result := Run(context.Background(), threeProfiles(), attempt)

	require.Len(t, result.Attempts, 1)
	assert.Equal(t, int64(12500), result.Amount)
	assert.Equal(t, []string{"jpn+eng"}, calls)
}

func TestRun_AllProfilesFail(t *testing.T) {
	var calls []string
	attempt := stubAttempt(map[string]string{
		"jpn+eng": "金額",
		"jpn":     "",
		"eng":     "no digits",
	}, nil, &calls)

	result := Run(context.Background(), threeProfiles(), attempt)

	require.Len(t, result.Attempts, 3)
	assert.False(t, result.Found)
	assert.Zero(t, result.Amount)
	for i, a := range result.Attempts {
		assert.Equal(t, threeProfiles()[i].Identifier(), a.Profile)
		assert.False(t, a.Found)
	}
}

func TestRun_EngineErrorContinues(t *testing.T) {
	var calls []string
	attempt := stubAttempt(
		map[string]string{"eng": "8,000"},
		map[string]error{
			"jpn+eng": errors.New("tessdata missing"),
			"jpn":     errors.New("boom"),
		},
		&calls,
	)

	result := Run(context.Background(), threeProfiles(), attempt)

	require.Len(t, result.Attempts, 3)
	assert.Equal(t, "tessdata missing", result.Attempts[0].Error)
	assert.Empty(t, result.Attempts[0].Text)
	assert.False(t, result.Attempts[0].Found)
	assert.True(t, result.Found)
	assert.Equal(t, int64(8000), result.Amount)
}

func TestRun_ZeroAmountIsNotAMatch(t *testing.T) {
	var calls []string
	attempt := stubAttempt(map[string]string{
		"jpn+eng": "0",
		"jpn":     "1,200",
	}, nil, &calls)

	result := Run(context.Background(), threeProfiles(), attempt)

	require.Len(t, result.Attempts, 2)
	assert.Equal(t, int64(1200), result.Amount)
}

func TestRun_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls []string
	attempt := func(_ context.Context, p models.RecognitionProfile) (string, error) {
		calls = append(calls, p.Identifier())
		cancel()
		return "", context.Canceled
	}

	result := Run(ctx, threeProfiles(), attempt)

	require.Len(t, result.Attempts, 1)
	assert.False(t, result.Found)
	assert.Equal(t, []string{"jpn+eng"}, calls)
}

func TestRun_NoProfiles(t *testing.T) {
	result := Run(context.Background(), nil, func(context.Context, models.RecognitionProfile) (string, error) {
		t.Fatal("attempt must not be called")
		return "", nil
	})

	assert.Empty(t, result.Attempts)
	assert.False(t, result.Found)
}
