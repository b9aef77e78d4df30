package facerec

import (
	"math"

	"github.com/algohackers/saarthi-vault/internal/model"
)

// DefaultThreshold is the shipped cosine-similarity floor, matching the
// recognizer's own validation threshold.
const DefaultThreshold = 0.4

// CosineMatcher matches embeddings by cosine similarity. It is the default
// policy; deployments may inject any other Matcher without touching capture
// or identity logic.
type CosineMatcher struct {
	Threshold float64
}

// Match reports whether the cosine similarity of a and b reaches the
// threshold. Mismatched lengths and zero-norm vectors never match.
func (m CosineMatcher) Match(a, b model.Embedding) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return false
	}
	return dot/(math.Sqrt(na)*math.Sqrt(nb)) >= m.Threshold
}
