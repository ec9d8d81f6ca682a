package textutil

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "inflacao", StripAccents("inflação"))
	assert.Equal(t, "Saude publica", StripAccents("Saúde pública"))
	assert.Equal(t, "", StripAccents(""))
}

func TestNormalizeKeywords(t *testing.T) {
	got := NormalizeKeywords([]string{" Eleição ", "", "copa do mundo, Jogo", "eleicao", "  "})
	assert.Equal(t, []string{"eleicao", "copa do mundo", "jogo"}, got)
	assert.Empty(t, NormalizeKeywords([]string{" ", ","}))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01 10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"Wed, 01 May 2024 10:00:00 GMT", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"Wed, 01 May 2024 13:00:00 +0300", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s -> %s", tt.in, got)
	}

	_, err := ParseDate("not-a-date")
	assert.Error(t, err)
	_, err = ParseDate("  ")
	assert.ErrorIs(t, err, ErrEmptyDate)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("ã", 600)
	got := Truncate(long, 500)
	assert.Equal(t, 500, utf8.RuneCountInString(got))
	assert.Equal(t, "abc", Truncate("abc", 500))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "A. B. C.", Summarize("A. B. C. D.", 3))
	assert.Equal(t, "Título sem ponto.", Summarize("Título sem ponto", 3))
	assert.Equal(t, "Uma frase.", Summarize("Uma frase.", 3))
	assert.Equal(t, "", Summarize("", 3))
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("Eleição em SP", []string{"eleição"}))
	assert.False(t, ContainsAny("Futebol", []string{"", "economia"}))
}
