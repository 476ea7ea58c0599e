package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kalambet/cropdoc/internal/extract"
)

// ExtractAndValidate pulls the JSON object out of raw model text and coerces
// it with validate. Only extraction can fail; validation always yields a
// fully populated result.
func ExtractAndValidate[T any](raw string, validate func(map[string]any, T) T, defaults T) (T, error) {
	obj, err := extract.Object(raw)
	if err != nil {
		var zero T
		return zero, err
	}
	return validate(obj, defaults), nil
}

// ValidateDisease coerces obj into a DiseaseResult, taking each missing or
// invalid field from d. Severity is stored on the Mild/Moderate/Severe scale,
// so a Low or High input comes back as Mild or Severe.
func ValidateDisease(obj map[string]any, d DiseaseResult) DiseaseResult {
	return DiseaseResult{
		DiseaseName:     stringField(obj, "disease_name", d.DiseaseName),
		Confidence:      confidenceField(obj, "confidence", d.Confidence),
		Description:     stringField(obj, "description", d.Description),
		Recommendations: stringListField(obj, "recommendations", d.Recommendations),
		Treatment:       stringListField(obj, "treatment", d.Treatment),
		Severity:        severityField(obj, "severity", d.Severity),
		CropType:        stringField(obj, "crop_type", d.CropType),
		YieldImpact:     stringField(obj, "yield_impact", d.YieldImpact),
		SpreadRisk:      enumField(obj, "spread_risk", levels, d.SpreadRisk),
		RecoveryChance:  enumField(obj, "recovery_chance", levels, d.RecoveryChance),
		BoundingBoxes:   boxesField(obj, "bounding_boxes", d.BoundingBoxes),
	}
}

func ValidateSoil(obj map[string]any, d SoilResult) SoilResult {
	return SoilResult{
		SoilType:        stringField(obj, "soil_type", d.SoilType),
		Confidence:      confidenceField(obj, "confidence", d.Confidence),
		PHLevel:         stringField(obj, "ph_level", d.PHLevel),
		Nutrients:       nutrientsField(obj, "nutrients", d.Nutrients),
		Recommendations: stringListField(obj, "recommendations", d.Recommendations),
	}
}

func ValidateYield(obj map[string]any, d YieldResult) YieldResult {
	return YieldResult{
		PredictedYield:     nonNegativeField(obj, "predictedYield", d.PredictedYield),
		YieldUnit:          stringField(obj, "yieldUnit", d.YieldUnit),
		Confidence:         confidenceField(obj, "confidence", d.Confidence),
		PotentialIncome:    nonNegativeField(obj, "potentialIncome", d.PotentialIncome),
		Recommendations:    stringListField(obj, "recommendations", d.Recommendations),
		DiseaseLossPercent: percentPtrField(obj, "diseaseLossPercent", d.DiseaseLossPercent),
	}
}

func ValidateGitError(obj map[string]any, d GitErrorResult) GitErrorResult {
	return GitErrorResult{
		Error:             stringField(obj, "error", d.Error),
		Analysis:          stringField(obj, "analysis", d.Analysis),
		SuggestedCommands: stringListField(obj, "suggestedCommands", d.SuggestedCommands),
		Confidence:        confidenceField(obj, "confidence", d.Confidence),
	}
}

var levels = []string{LevelLow, LevelMedium, LevelHigh}

func stringField(obj map[string]any, key, def string) string {
	switch v := obj[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case json.Number:
		return v.String()
	}
	return def
}

func stringListField(obj map[string]any, key string, def []string) []string {
	switch v := obj[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) == 0 && len(v) > 0 {
			return cloneStrings(def)
		}
		return out
	}
	return cloneStrings(def)
}

// number coerces JSON numbers and numeric strings ("85", "85%", " 3.2 ").
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(n), "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// confidenceField rounds and clamps to [0,100]. Fractions in (0,1) are read
// as probabilities and scaled.
func confidenceField(obj map[string]any, key string, def int) int {
	f, ok := number(obj[key])
	if !ok {
		return def
	}
	if f > 0 && f < 1 {
		f *= 100
	}
	return int(math.Round(clamp(f, 0, 100)))
}

func nonNegativeField(obj map[string]any, key string, def float64) float64 {
	f, ok := number(obj[key])
	if !ok {
		return def
	}
	return math.Max(f, 0)
}

func percentPtrField(obj map[string]any, key string, def *float64) *float64 {
	f, ok := number(obj[key])
	if !ok {
		if def == nil {
			return nil
		}
		v := *def
		return &v
	}
	v := clamp(f, 0, 100)
	return &v
}

func enumField(obj map[string]any, key string, domain []string, def string) string {
	s, ok := obj[key].(string)
	if !ok {
		return def
	}
	if v, ok := matchEnum(s, domain); ok {
		return v
	}
	return def
}

func severityField(obj map[string]any, key, def string) string {
	s, ok := obj[key].(string)
	if !ok {
		return def
	}
	if v, ok := NormalizeSeverity(s); ok {
		return v
	}
	return def
}

// NormalizeSeverity maps a severity word to Mild, Moderate or Severe.
// Matching is case-insensitive and accepts the Low/Medium/High scale.
func NormalizeSeverity(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mild", "low":
		return SeverityMild, true
	case "moderate", "medium":
		return SeverityModerate, true
	case "severe", "high":
		return SeveritySevere, true
	}
	return "", false
}

func matchEnum(s string, domain []string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, d := range domain {
		if strings.EqualFold(s, d) {
			return d, true
		}
	}
	return "", false
}

func nutrientsField(obj map[string]any, key string, def []Nutrient) []Nutrient {
	items, ok := obj[key].([]any)
	if !ok {
		return append([]Nutrient{}, def...)
	}
	out := make([]Nutrient, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(m, "name", "")
		if name == "" {
			continue
		}
		out = append(out, Nutrient{
			Name:           name,
			Level:          enumField(m, "level", levels, LevelMedium),
			Recommendation: stringField(m, "recommendation", ""),
		})
	}
	return out
}

func boxesField(obj map[string]any, key string, def []BoundingBox) []BoundingBox {
	items, ok := obj[key].([]any)
	if !ok {
		if len(def) == 0 {
			return nil
		}
		return append([]BoundingBox{}, def...)
	}
	var out []BoundingBox
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		x, okX := number(m["x"])
		y, okY := number(m["y"])
		w, okW := number(m["width"])
		h, okH := number(m["height"])
		if !okX || !okY || !okW || !okH || w <= 0 || h <= 0 {
			continue
		}
		out = append(out, BoundingBox{X: math.Max(x, 0), Y: math.Max(y, 0), Width: w, Height: h})
	}
	return out
}

// ClampBoxes trims boxes to the image bounds. Zero dimensions leave boxes untouched.
func ClampBoxes(boxes []BoundingBox, width, height int) []BoundingBox {
	if width <= 0 || height <= 0 || len(boxes) == 0 {
		return boxes
	}
	W, H := float64(width), float64(height)
	out := boxes[:0:0]
	for _, b := range boxes {
		if b.X >= W || b.Y >= H {
			continue
		}
		b.Width = math.Min(b.Width, W-b.X)
		b.Height = math.Min(b.Height, H-b.Y)
		out = append(out, b)
	}
	return out
}

func clamp(f, lo, hi float64) float64 {
	return math.Min(math.Max(f, lo), hi)
}

func cloneStrings(s []string) []string {
	return append([]string{}, s...)
}
