package analysis

import "fmt"

// Kind discriminates analysis requests and results.
type Kind string

const (
	KindDisease  Kind = "disease"
	KindSoil     Kind = "soil"
	KindYield    Kind = "yield"
	KindGitError Kind = "git-error"
)

// ParseKind maps a request tag onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindDisease, KindSoil, KindYield, KindGitError:
		return k, nil
	}
	return "", fmt.Errorf("unknown analysis kind %q", s)
}

// Severity domain. Low/High are accepted on input and normalised to Mild/Severe.
const (
	SeverityMild     = "Mild"
	SeverityModerate = "Moderate"
	SeveritySevere   = "Severe"
)

// Level domain shared by spread risk, recovery chance and nutrient levels.
const (
	LevelLow    = "Low"
	LevelMedium = "Medium"
	LevelHigh   = "High"
)

// BoundingBox locates an affected region in image pixel space.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type DiseaseResult struct {
	DiseaseName     string        `json:"disease_name"`
	Confidence      int           `json:"confidence"`
	Description     string        `json:"description"`
	Recommendations []string      `json:"recommendations"`
	Treatment       []string      `json:"treatment"`
	Severity        string        `json:"severity"`
	CropType        string        `json:"crop_type"`
	YieldImpact     string        `json:"yield_impact"`
	SpreadRisk      string        `json:"spread_risk"`
	RecoveryChance  string        `json:"recovery_chance"`
	BoundingBoxes   []BoundingBox `json:"bounding_boxes,omitempty"`
}

type Nutrient struct {
	Name           string `json:"name"`
	Level          string `json:"level"`
	Recommendation string `json:"recommendation"`
}

type SoilResult struct {
	SoilType        string     `json:"soil_type"`
	Confidence      int        `json:"confidence"`
	PHLevel         string     `json:"ph_level"`
	Nutrients       []Nutrient `json:"nutrients"`
	Recommendations []string   `json:"recommendations"`
}

type YieldResult struct {
	PredictedYield     float64  `json:"predictedYield"`
	YieldUnit          string   `json:"yieldUnit"`
	Confidence         int      `json:"confidence"`
	PotentialIncome    float64  `json:"potentialIncome"`
	Recommendations    []string `json:"recommendations"`
	DiseaseLossPercent *float64 `json:"diseaseLossPercent,omitempty"`
}

type GitErrorResult struct {
	Error             string   `json:"error"`
	Analysis          string   `json:"analysis"`
	SuggestedCommands []string `json:"suggestedCommands"`
	Confidence        int      `json:"confidence"`
}

// DefaultDisease is substituted field-by-field when a response omits or
// corrupts disease fields.
func DefaultDisease() DiseaseResult {
	return DiseaseResult{
		DiseaseName:     "Unknown condition",
		Confidence:      0,
		Description:     "The analysis did not return a description for this image.",
		Recommendations: []string{"Retake the photo in daylight with the affected leaf filling the frame."},
		Treatment:       []string{},
		Severity:        SeverityModerate,
		CropType:        "Unknown",
		YieldImpact:     "Unknown",
		SpreadRisk:      LevelMedium,
		RecoveryChance:  LevelMedium,
	}
}

func DefaultSoil() SoilResult {
	return SoilResult{
		SoilType:        "Unknown",
		Confidence:      0,
		PHLevel:         "Unknown",
		Nutrients:       []Nutrient{},
		Recommendations: []string{"Send a sample to a soil testing laboratory for a full nutrient panel."},
	}
}

func DefaultYield() YieldResult {
	return YieldResult{
		PredictedYield:  0,
		YieldUnit:       "tons",
		Confidence:      0,
		PotentialIncome: 0,
		Recommendations: []string{},
	}
}

// DefaultGitError echoes the original message so the result is never blank.
func DefaultGitError(message string) GitErrorResult {
	return GitErrorResult{
		Error:             message,
		Analysis:          "No analysis is available for this error.",
		SuggestedCommands: []string{"git status"},
		Confidence:        0,
	}
}
