package fallback

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/cropdoc/internal/analysis"
)

func sampleEncoding(seed byte, n int) string {
	raw := make([]byte, n)
	x := uint32(seed) + 1
	for i := range raw {
		x = x*1664525 + 1013904223
		raw[i] = byte(x >> 24)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func inCatalog(r analysis.DiseaseResult) bool {
	for _, c := range catalog {
		if c.name != r.CropType {
			continue
		}
		if r.DiseaseName == healthy.name {
			return true
		}
		for _, cond := range c.conditions {
			if cond.name == r.DiseaseName {
				return true
			}
		}
	}
	return false
}

func TestAnalyze_Deterministic(t *testing.T) {
	for seed := byte(0); seed < 20; seed++ {
		enc := sampleEncoding(seed, 3000)
		a := Analyze(enc)
		b := Analyze(enc)
		assert.Equal(t, a, b, "seed %d", seed)
	}
}

func TestAnalyze_ResultShape(t *testing.T) {
	for seed := byte(0); seed < 50; seed++ {
		r := Analyze(sampleEncoding(seed, 1500))
		assert.True(t, inCatalog(r), "seed %d produced %s/%s", seed, r.CropType, r.DiseaseName)
		assert.LessOrEqual(t, r.Confidence, maxConfidence)
		assert.True(t, strings.HasSuffix(r.Description, offlineNote))
		assert.NotNil(t, r.Recommendations)
		assert.NotNil(t, r.Treatment)
		assert.Nil(t, r.BoundingBoxes)
	}
}

func TestAnalyze_DataURLPrefixIgnored(t *testing.T) {
	enc := sampleEncoding(7, 2000)
	assert.Equal(t, Analyze(enc), Analyze("data:image/jpeg;base64,"+enc))
}

func TestAnalyze_ShortInput(t *testing.T) {
	r := Analyze(strings.Repeat("A", 50))
	assert.True(t, inCatalog(r))
}

func TestAnalyze_ResultsAreIndependentCopies(t *testing.T) {
	enc := sampleEncoding(3, 2000)
	r := Analyze(enc)
	require.NotEmpty(t, r.Recommendations)
	r.Recommendations[0] = "mutated"
	assert.NotEqual(t, "mutated", Analyze(enc).Recommendations[0])
}

func TestComputeStats_Ranges(t *testing.T) {
	for seed := byte(0); seed < 30; seed++ {
		st := computeStats(sampleEncoding(seed, 4000))
		assert.GreaterOrEqual(t, st.brightness, 0)
		assert.Less(t, st.brightness, 256)
		assert.Less(t, st.green, 256)
		assert.Less(t, st.texture, 100)
	}
}

func TestComputeSignature(t *testing.T) {
	filler := strings.Repeat("0", windowStart)

	sig := computeSignature(filler + "xxABCD12xx")
	assert.True(t, sig.spots)
	assert.False(t, sig.discolor)

	sig = computeSignature(filler + "00leafy+00")
	assert.True(t, sig.discolor)
	assert.False(t, sig.spots)

	sig = computeSignature(filler + "Ab1Cd2Ef3")
	assert.True(t, sig.stripes)

	sig = computeSignature(filler + referencePattern)
	assert.InDelta(t, 1.0, sig.similarity, 1e-9)

	sig = computeSignature("ABCD12" + strings.Repeat("0", 60))
	assert.False(t, sig.spots, "matches before the window are ignored")
}

func TestIsHealthy(t *testing.T) {
	good := stats{green: 200, texture: 10}
	clean := signature{similarity: 0.5}
	assert.True(t, isHealthy(good, clean))

	assert.False(t, isHealthy(stats{green: 150, texture: 10}, clean))
	assert.False(t, isHealthy(stats{green: 200, texture: 40}, clean))
	assert.False(t, isHealthy(good, signature{similarity: 0.35}))
	assert.False(t, isHealthy(good, signature{similarity: 0.9, spots: true}))
	assert.False(t, isHealthy(good, signature{similarity: 0.9, discolor: true}))
}

func TestConditionIndex_Priority(t *testing.T) {
	st := stats{hash: 0xABCDEF, texture: 17}
	assert.Equal(t, 0, conditionIndex(st, signature{spots: true}, 3))
	assert.Equal(t, 1, conditionIndex(st, signature{discolor: true}, 3))
	assert.Equal(t, 2, conditionIndex(st, signature{spots: true, discolor: true}, 3))
	assert.Equal(t, 2, conditionIndex(st, signature{stripes: true}, 3))
	assert.Equal(t, int((uint64(0xABCDEF>>8)+17)%3), conditionIndex(st, signature{}, 3))
}

func TestCatalog_ThreeConditionsPerCrop(t *testing.T) {
	for _, c := range catalog {
		assert.Len(t, c.conditions, 3, c.name)
	}
}
