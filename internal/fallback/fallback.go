// Package fallback produces a disease result without any network access.
// It is a deterministic heuristic over the encoded image text, not a trained
// classifier; results are marked as offline estimates and capped in
// confidence.
package fallback

import (
	"hash/fnv"
	"regexp"

	"github.com/kalambet/cropdoc/internal/analysis"
	"github.com/kalambet/cropdoc/internal/imagecodec"
)

const (
	prefixLen     = 2000
	sampleStep    = 10
	windowStart   = 100
	windowEnd     = 600
	maxConfidence = 60

	offlineNote = "This is an offline estimate produced without the remote analysis service; confirm with an agronomist before treating."
)

// referencePattern stands in for the encoding of a uniformly green leaf.
const referencePattern = "R0lGODlhAQABAPAAAACAAP///yH5BAAAAAAALAAAAAABAAEAAAICRAEAOw"

var (
	spotRe         = regexp.MustCompile(`[A-Z]{3,}[0-9]{2,}`)
	discolorRe     = regexp.MustCompile(`[a-z]{4,}[+/]`)
	stripeRe       = regexp.MustCompile(`(?:[A-Z][a-z][0-9]){2,}`)
	referenceGrams = bigrams(referencePattern)
)

type stats struct {
	brightness int
	green      int
	texture    int
	hash       uint32
}

type signature struct {
	spots      bool
	discolor   bool
	stripes    bool
	similarity float64
}

// Analyze returns the catalog entry selected for encoded. The same input
// always yields the same result.
func Analyze(encoded string) analysis.DiseaseResult {
	s := imagecodec.Strip(encoded)
	st := computeStats(s)
	sig := computeSignature(s)

	c := catalog[cropIndex(st)]
	cond := healthy
	if !isHealthy(st, sig) {
		cond = c.conditions[conditionIndex(st, sig, len(c.conditions))]
	}
	return toResult(c.name, cond)
}

func computeStats(s string) stats {
	prefix := s
	if len(prefix) > prefixLen {
		prefix = prefix[:prefixLen]
	}

	var st stats
	prev := -1
	for i := 0; i < len(prefix); i += sampleStep {
		code := int(prefix[i])
		st.brightness += code
		if r := code % 5; r == 2 || r == 3 {
			st.green += code
		}
		if prev >= 0 {
			st.texture += abs(code - prev)
		}
		prev = code
	}
	st.brightness %= 256
	st.green %= 256
	st.texture %= 100

	h := fnv.New32a()
	h.Write([]byte(prefix))
	st.hash = h.Sum32()
	return st
}

func computeSignature(s string) signature {
	var window string
	if len(s) > windowStart {
		end := min(len(s), windowEnd)
		window = s[windowStart:end]
	}
	probe := window
	if len(probe) > len(referencePattern) {
		probe = probe[:len(referencePattern)]
	}
	return signature{
		spots:      spotRe.MatchString(window),
		discolor:   discolorRe.MatchString(window),
		stripes:    stripeRe.MatchString(window),
		similarity: jaccard(bigrams(probe), referenceGrams),
	}
}

func isHealthy(st stats, sig signature) bool {
	return st.green > 150 && st.texture < 40 && sig.similarity > 0.35 && !sig.spots && !sig.discolor
}

func cropIndex(st stats) int {
	return int((uint64(st.hash) + uint64(st.brightness) + uint64(st.green)) % uint64(len(catalog)))
}

func conditionIndex(st stats, sig signature, n int) int {
	switch {
	case (sig.spots && sig.discolor) || sig.stripes:
		return 2 % n
	case sig.spots:
		return 0
	case sig.discolor:
		return 1 % n
	}
	return int((uint64(st.hash>>8) + uint64(st.texture)) % uint64(n))
}

func toResult(cropName string, c condition) analysis.DiseaseResult {
	return analysis.DiseaseResult{
		DiseaseName:     c.name,
		Confidence:      min(c.confidence, maxConfidence),
		Description:     c.description + " " + offlineNote,
		Recommendations: append([]string{}, c.recommendations...),
		Treatment:       append([]string{}, c.treatment...),
		Severity:        c.severity,
		CropType:        cropName,
		YieldImpact:     c.yieldImpact,
		SpreadRisk:      c.spreadRisk,
		RecoveryChance:  c.recoveryChance,
	}
}

func bigrams(s string) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for i := 0; i+1 < len(s); i++ {
		out[s[i:i+2]] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for g := range a {
		if _, ok := b[g]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
