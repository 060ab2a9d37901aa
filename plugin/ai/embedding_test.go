package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/echonote/internal/errors"
)

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"valid", "what did I note about the launch?", false},
		{"empty", "", true},
		{"whitespace only", " \t\n ", true},
		{"exactly at limit", strings.Repeat("a", MaxInputChars), false},
		{"one over limit", strings.Repeat("a", MaxInputChars+1), true},
		{"multibyte runes counted as characters", strings.Repeat("语", MaxInputChars), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewEmbeddingServiceValidation(t *testing.T) {
	_, err := NewEmbeddingService(&EmbeddingConfig{Model: "text-embedding-3-small"})
	require.Error(t, err)

	svc, err := NewEmbeddingService(&EmbeddingConfig{
		Provider: "openai",
		Model:    "text-embedding-3-small",
		APIKey:   "sk-test",
		BaseURL:  "https://api.openai.com/v1",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}
