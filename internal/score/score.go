// Package score holds the pure ranking functions shared by all memory
// backends: tokenization, lexical overlap, cosine similarity, hybrid
// blending, and the time-based decay multipliers.
package score

import (
	"math"
	"strings"
	"time"
)

// Default hybrid blend weights.
const (
	DefaultTextWeight   = 0.4
	DefaultVectorWeight = 0.6
)

// Tokenize lowercases s and splits it on non-alphanumeric boundaries,
// dropping empty runs.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isAlnum(r)
	})
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Lexical scores an entry's key and content against pre-tokenized query
// tokens: +2 per token appearing as a whole token in the key, else +1 if it
// appears as a whole token in the content, normalized by the query token
// count. Whole-token matching means "test" never matches inside "attest".
func Lexical(queryTokens []string, key, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	keyTokens := toSet(Tokenize(key))
	contentTokens := toSet(Tokenize(content))

	var hits float64
	for _, tok := range queryTokens {
		switch {
		case keyTokens[tok]:
			hits += 2
		case contentTokens[tok]:
			hits++
		}
	}
	return hits / float64(len(queryTokens))
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// Cosine returns the cosine similarity of a and b in [-1, 1], or 0 when
// either vector is empty, the lengths differ, or either has zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom < 1e-12 {
		return 0
	}
	return dot / denom
}

// Hybrid combines a normalized text score in [0,1] and a cosine similarity
// in [-1,1] into one value in [0,1]. When only one signal is present it is
// used unweighted so results still rank meaningfully; when neither is
// present the result is 0 and the entry must not surface at all.
func Hybrid(textNorm, cosineSim, textWeight, vectorWeight float64, hasText, hasVector bool) float64 {
	vecNorm := (cosineSim + 1) / 2
	switch {
	case hasText && hasVector:
		return textWeight*textNorm + vectorWeight*vecNorm
	case hasText:
		return textNorm
	case hasVector:
		return vecNorm
	}
	return 0
}

// RecencyDecay returns the multiplier exp(-ln2 * age/halfLife): 1.0 at age
// zero, exactly 0.5 at one half-life. A non-positive half-life disables
// decay (always 1.0).
func RecencyDecay(age, halfLife time.Duration) float64 {
	if halfLife <= 0 {
		return 1
	}
	if age < 0 {
		age = 0
	}
	return math.Exp(-math.Ln2 * age.Seconds() / halfLife.Seconds())
}

// IdleFade penalizes a Knowledge entry approaching its idle deadline: 1.0
// until half the max idle age, then a linear ramp down to 0.0 at the
// deadline. A non-positive maxIdle disables fading.
func IdleFade(idle, maxIdle time.Duration) float64 {
	if maxIdle <= 0 || idle <= maxIdle/2 {
		return 1
	}
	if idle >= maxIdle {
		return 0
	}
	half := maxIdle / 2
	return 1 - float64(idle-half)/float64(maxIdle-half)
}
