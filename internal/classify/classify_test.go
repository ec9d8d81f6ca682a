package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDefault(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"politics", "Presidente e ministro se reúnem", "Política"},
		{"empty", "", Unclassified},
		{"no keyword", "zzz qqq", Unclassified},
		{"economy", "Inflação e juros sobem; dólar recua", "Economia"},
		{"substring counts", "Atleta vence o jogo do time", "Esportes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func TestScorePolitics(t *testing.T) {
	scores := Default().Score("Presidente e ministro se reúnem")
	assert.Equal(t, 2, scores[0])
}

func TestTieGoesToFirstRegistered(t *testing.T) {
	c := New(
		Topic{Label: "A", Keywords: []string{"alpha"}},
		Topic{Label: "B", Keywords: []string{"beta"}},
	)
	assert.Equal(t, "A", c.Classify("beta alpha"))
	assert.Equal(t, []string{"A", "B"}, c.Labels())
}

func TestSubstringNotWordBoundary(t *testing.T) {
	c := New(Topic{Label: "Tech", Keywords: []string{"ia"}})
	assert.Equal(t, []int{2}, c.Score("Dia de ia"))
}
