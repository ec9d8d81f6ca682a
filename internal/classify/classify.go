// Package classify assigns a topic label by keyword counting.
package classify

import "strings"

// Unclassified is returned when no topic keyword occurs in the text.
const Unclassified = "unclassified"

// Topic is a label and the phrases that vote for it.
type Topic struct {
	Label    string
	Keywords []string
}

// Classifier scores text against topics in registration order.
type Classifier struct {
	topics []Topic
}

// New builds a Classifier. Keywords are lowercased once up front.
func New(topics ...Topic) *Classifier {
	c := &Classifier{topics: make([]Topic, 0, len(topics))}
	for _, t := range topics {
		kws := make([]string, 0, len(t.Keywords))
		for _, kw := range t.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		c.topics = append(c.topics, Topic{Label: t.Label, Keywords: kws})
	}
	return c
}

// Default returns the Portuguese news topic buckets.
func Default() *Classifier {
	return New(
		Topic{Label: "Política", Keywords: []string{"presidente", "governo", "ministro", "senado", "câmara", "política", "deputado", "lei", "eleição"}},
		Topic{Label: "Economia", Keywords: []string{"economia", "inflação", "juros", "pib", "comércio", "financeiro", "dólar", "bolsa"}},
		Topic{Label: "Esportes", Keywords: []string{"jogo", "time", "futebol", "campeonato", "esportes", "olímpico", "atleta", "vitória", "derrota"}},
		Topic{Label: "Tecnologia", Keywords: []string{"tecnologia", "startup", "inovação", "software", "hardware", "internet", "app", "ia"}},
		Topic{Label: "Cultura", Keywords: []string{"cultura", "música", "filme", "arte", "literatura", "teatro", "show", "exposição"}},
		Topic{Label: "Saúde", Keywords: []string{"saúde", "hospital", "vacina", "doença", "médico", "tratamento", "pandemia", "oms"}},
	)
}

// Classify returns the best-scoring label; ties go to the earliest topic.
func (c *Classifier) Classify(text string) string {
	if text == "" {
		return Unclassified
	}
	best, bestScore := Unclassified, 0
	for i, score := range c.Score(text) {
		if score > bestScore {
			best, bestScore = c.topics[i].Label, score
		}
	}
	return best
}

// Score returns the per-topic substring counts, index-aligned with registration order.
func (c *Classifier) Score(text string) []int {
	low := strings.ToLower(text)
	scores := make([]int, len(c.topics))
	for i, t := range c.topics {
		for _, kw := range t.Keywords {
			scores[i] += strings.Count(low, kw)
		}
	}
	return scores
}

// Labels lists topic labels in registration order.
func (c *Classifier) Labels() []string {
	out := make([]string, len(c.topics))
	for i, t := range c.topics {
		out[i] = t.Label
	}
	return out
}
