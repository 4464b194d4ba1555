package classifier

import (
	"math"
	"sort"
	"strings"
)

const (
	ngramMin    = 2
	ngramMax    = 4
	maxFeatures = 5000
)

// vectorizer maps request text to L2-normalized TF-IDF vectors over
// character n-grams. N-grams are taken inside word boundaries, each token
// padded with spaces, so grams never span tokens.
type vectorizer struct {
	Vocab map[string]int `json:"vocab"`
	IDF   []float64      `json:"idf"`
}

// ngrams extracts the lowercased char n-grams of one text.
func ngrams(text string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		padded := " " + tok + " "
		runes := []rune(padded)
		for n := ngramMin; n <= ngramMax; n++ {
			for i := 0; i+n <= len(runes); i++ {
				out = append(out, string(runes[i:i+n]))
			}
		}
	}
	return out
}

// fitVectorizer builds the vocabulary from the training corpus: the
// maxFeatures most document-frequent grams, with smoothed IDF weights.
// Ties break lexicographically so fitting is deterministic.
func fitVectorizer(docs []string) *vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, g := range ngrams(doc) {
			if !seen[g] {
				seen[g] = true
				df[g]++
			}
		}
	}

	grams := make([]string, 0, len(df))
	for g := range df {
		grams = append(grams, g)
	}
	sort.Slice(grams, func(i, j int) bool {
		if df[grams[i]] != df[grams[j]] {
			return df[grams[i]] > df[grams[j]]
		}
		return grams[i] < grams[j]
	})
	if len(grams) > maxFeatures {
		grams = grams[:maxFeatures]
	}
	// Vocabulary indices in lexicographic order, independent of frequency.
	sort.Strings(grams)

	v := &vectorizer{
		Vocab: make(map[string]int, len(grams)),
		IDF:   make([]float64, len(grams)),
	}
	n := float64(len(docs))
	for i, g := range grams {
		v.Vocab[g] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(df[g]))) + 1
	}
	return v
}

// transform vectorizes one text into a sparse {feature index: weight} map.
// Grams outside the vocabulary are ignored; fully unseen text yields an
// empty vector, which downstream treats as a defined low-information input.
func (v *vectorizer) transform(text string) map[int]float64 {
	tf := make(map[int]float64)
	for _, g := range ngrams(text) {
		if idx, ok := v.Vocab[g]; ok {
			tf[idx]++
		}
	}

	var norm float64
	for idx := range tf {
		tf[idx] *= v.IDF[idx]
		norm += tf[idx] * tf[idx]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range tf {
			tf[idx] /= norm
		}
	}
	return tf
}
