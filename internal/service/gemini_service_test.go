package service

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestTruncateUTF8(t *testing.T) {
	short := "plain ascii text"
	assert.Equal(t, short, truncateUTF8(short, 100))

	ascii := strings.Repeat("a", 50)
	assert.Equal(t, ascii[:10], truncateUTF8(ascii, 10))

	// A cut landing inside a multi-byte rune backs up to the boundary.
	multibyte := strings.Repeat("é", 10) // 2 bytes per rune
	got := truncateUTF8(multibyte, 11)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 5), got)

	wide := strings.Repeat("評価", 6) // 3 bytes per rune
	for max := 1; max <= len(wide); max++ {
		assert.True(t, utf8.ValidString(truncateUTF8(wide, max)), "max %d", max)
	}
}

func TestValidateEmbeddingResponse(t *testing.T) {
	valid := &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
	}
	vec, err := validateEmbeddingResponse(valid)
	require.NoError(t, err)
	assert.Len(t, vec, 3)

	_, err = validateEmbeddingResponse(nil)
	assert.Error(t, err)

	_, err = validateEmbeddingResponse(&genai.EmbedContentResponse{})
	assert.Error(t, err)

	bad := &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, float32(math.Inf(1))}}},
	}
	_, err = validateEmbeddingResponse(bad)
	assert.Error(t, err)
}
