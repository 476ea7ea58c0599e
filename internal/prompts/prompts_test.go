package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/cropdoc/internal/analysis"
)

func TestDisease_EnumeratesKeys(t *testing.T) {
	p := Disease(DiseaseParams{CropHint: "tomato", Notes: "spots after rain", ImageCount: 2})
	for _, key := range []string{
		`"disease_name"`, `"confidence"`, `"description"`, `"recommendations"`, `"treatment"`,
		`"severity"`, `"crop_type"`, `"yield_impact"`, `"spread_risk"`, `"recovery_chance"`, `"bounding_boxes"`,
	} {
		assert.Contains(t, p, key)
	}
	assert.Contains(t, p, "tomato")
	assert.Contains(t, p, "spots after rain")
	assert.Contains(t, p, "2 photos")
	assert.Contains(t, p, "0-100")
	assert.True(t, strings.HasSuffix(p, jsonOnly))
}

func TestSoil_EnumeratesKeys(t *testing.T) {
	p := Soil(SoilParams{Location: "Nakuru"})
	for _, key := range []string{`"soil_type"`, `"confidence"`, `"ph_level"`, `"nutrients"`, `"recommendations"`} {
		assert.Contains(t, p, key)
	}
	assert.Contains(t, p, "near Nakuru")
	assert.Contains(t, p, "texture")
}

func TestYield_IncludesFieldFacts(t *testing.T) {
	p := Yield(YieldParams{Crop: "maize", AreaHectares: 2.5, RainfallMM: 640, TemperatureC: 24.3, DiseaseName: "Leaf Blight", DiseaseSeverity: "Mild"})
	assert.Contains(t, p, "- crop: maize")
	assert.Contains(t, p, "2.50 hectares")
	assert.Contains(t, p, "640 mm")
	assert.Contains(t, p, "24.3 °C")
	assert.Contains(t, p, "- soil type: unknown")
	assert.Contains(t, p, "Leaf Blight (severity Mild)")
	assert.NotContains(t, p, "market price")
	assert.Contains(t, p, `"diseaseLossPercent"`)
}

func TestGitError_EmbedsMessage(t *testing.T) {
	p := GitError(GitErrorParams{Message: "fatal: refusing to merge unrelated histories", Command: "git pull"})
	assert.Contains(t, p, "fatal: refusing to merge unrelated histories")
	assert.Contains(t, p, "Command: git pull")
	assert.Contains(t, p, `"suggestedCommands"`)
}

func TestBuild_Dispatch(t *testing.T) {
	got, err := Build(analysis.KindSoil, SoilParams{})
	require.NoError(t, err)
	assert.Equal(t, Soil(SoilParams{}), got)

	got, err = Build(analysis.KindGitError, GitErrorParams{Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, GitError(GitErrorParams{Message: "x"}), got)
}

func TestBuild_Mismatch(t *testing.T) {
	_, err := Build(analysis.KindDisease, SoilParams{})
	assert.Error(t, err)

	_, err = Build(analysis.Kind("weather"), nil)
	assert.Error(t, err)
}

func TestBuilders_Deterministic(t *testing.T) {
	p := YieldParams{Crop: "rice", AreaHectares: 1, PricePerUnit: 310}
	assert.Equal(t, Yield(p), Yield(p))
	assert.Contains(t, Yield(p), "310.00 per ton")
}
