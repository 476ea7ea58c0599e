// Package prompts builds the instruction text sent to vision/text models for
// each analysis kind. Every prompt pins the exact JSON shape the response
// parser expects.
package prompts

import (
	"fmt"
	"strings"

	"github.com/kalambet/cropdoc/internal/analysis"
)

const jsonOnly = `Respond with ONLY a single valid JSON object. Do not include markdown, prose, or comments outside the object.`

const diseaseTemplate = `You are an experienced plant pathologist helping a smallholder farmer. Diagnose the plant in the attached photo%s.

Examine:
- leaf colour and any yellowing, browning or chlorosis
- lesions, spots, rings, mould or powdery growth
- wilting, curling, stunting and stem damage
- the pattern of spread across the leaf and plant

Return a JSON object with exactly these keys:
- "disease_name": string, the most likely disease or "Healthy"
- "confidence": integer 0-100, your confidence in the diagnosis
- "description": string, two or three sentences a farmer can understand
- "recommendations": array of strings, ordered by priority
- "treatment": array of strings, concrete treatment steps
- "severity": one of "Mild", "Moderate", "Severe"
- "crop_type": string, the crop shown
- "yield_impact": string, expected effect on yield
- "spread_risk": one of "Low", "Medium", "High"
- "recovery_chance": one of "Low", "Medium", "High"
- "bounding_boxes": array of {"x": number, "y": number, "width": number, "height": number} in image pixels marking affected areas, or [] if none
`

const soilTemplate = `You are a soil scientist advising a farmer. Assess the soil in the attached photo%s.

Examine:
- colour and darkness, which indicate organic matter
- texture, particle size, clumping and cracking
- moisture and drainage signs
- visible salts, crusts, roots or residue

Return a JSON object with exactly these keys:
- "soil_type": string, e.g. "Loamy", "Clay", "Sandy", "Silty"
- "confidence": integer 0-100
- "ph_level": string, an estimated pH range such as "6.0-6.5"
- "nutrients": array of {"name": string, "level": one of "Low", "Medium", "High", "recommendation": string}
- "recommendations": array of strings, ordered by priority
`

const yieldTemplate = `You are an agronomist forecasting harvests. Predict the yield for this field:
%s
Consider the crop's typical yield for the region, the rainfall and temperature relative to its needs, soil suitability and any disease pressure.

Return a JSON object with exactly these keys:
- "predictedYield": non-negative number, total expected harvest
- "yieldUnit": string, the unit of predictedYield (default "tons")
- "confidence": integer 0-100
- "potentialIncome": non-negative number, expected revenue for the harvest
- "recommendations": array of strings to improve the outcome
- "diseaseLossPercent": number 0-100, expected loss from disease (0 if none)
`

const gitErrorTemplate = `You are a senior engineer who knows git internals. Explain the following git error and how to fix it.

Error output:
%s
%s
Examine the exact wording, the command that produced it and the repository state it implies.

Return a JSON object with exactly these keys:
- "error": string, the original error message
- "analysis": string, what went wrong and why
- "suggestedCommands": array of strings, shell commands to run in order
- "confidence": integer 0-100
`

type DiseaseParams struct {
	CropHint   string
	Notes      string
	ImageCount int
}

type SoilParams struct {
	Location   string
	Notes      string
	ImageCount int
}

type YieldParams struct {
	Crop            string
	AreaHectares    float64
	RainfallMM      float64
	TemperatureC    float64
	SoilType        string
	DiseaseName     string
	DiseaseSeverity string
	PricePerUnit    float64
}

type GitErrorParams struct {
	Message string
	Command string
}

func Disease(p DiseaseParams) string {
	var ctx strings.Builder
	if p.CropHint != "" {
		fmt.Fprintf(&ctx, " (the farmer reports the crop is %s)", p.CropHint)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, diseaseTemplate, ctx.String())
	if p.ImageCount > 1 {
		fmt.Fprintf(&sb, "\n%d photos of the same plant are attached; combine the evidence into one diagnosis.\n", p.ImageCount)
	}
	if p.Notes != "" {
		fmt.Fprintf(&sb, "\nFarmer's notes: %s\n", p.Notes)
	}
	sb.WriteString("\n" + jsonOnly)
	return sb.String()
}

func Soil(p SoilParams) string {
	var ctx string
	if p.Location != "" {
		ctx = " taken near " + p.Location
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, soilTemplate, ctx)
	if p.ImageCount > 1 {
		fmt.Fprintf(&sb, "\n%d photos of the same field are attached.\n", p.ImageCount)
	}
	if p.Notes != "" {
		fmt.Fprintf(&sb, "\nFarmer's notes: %s\n", p.Notes)
	}
	sb.WriteString("\n" + jsonOnly)
	return sb.String()
}

func Yield(p YieldParams) string {
	var facts strings.Builder
	fmt.Fprintf(&facts, "- crop: %s\n", orUnknown(p.Crop))
	fmt.Fprintf(&facts, "- area: %.2f hectares\n", p.AreaHectares)
	fmt.Fprintf(&facts, "- seasonal rainfall: %.0f mm\n", p.RainfallMM)
	fmt.Fprintf(&facts, "- average temperature: %.1f °C\n", p.TemperatureC)
	fmt.Fprintf(&facts, "- soil type: %s\n", orUnknown(p.SoilType))
	if p.DiseaseName != "" {
		fmt.Fprintf(&facts, "- diagnosed disease: %s (severity %s)\n", p.DiseaseName, orUnknown(p.DiseaseSeverity))
	}
	if p.PricePerUnit > 0 {
		fmt.Fprintf(&facts, "- market price: %.2f per ton\n", p.PricePerUnit)
	}
	return fmt.Sprintf(yieldTemplate, facts.String()) + "\n" + jsonOnly
}

func GitError(p GitErrorParams) string {
	var cmd string
	if p.Command != "" {
		cmd = "\nCommand: " + p.Command + "\n"
	}
	return fmt.Sprintf(gitErrorTemplate, p.Message, cmd) + "\n" + jsonOnly
}

// Build dispatches to the builder for kind. params must be the matching
// *Params value.
func Build(kind analysis.Kind, params any) (string, error) {
	switch kind {
	case analysis.KindDisease:
		if p, ok := params.(DiseaseParams); ok {
			return Disease(p), nil
		}
	case analysis.KindSoil:
		if p, ok := params.(SoilParams); ok {
			return Soil(p), nil
		}
	case analysis.KindYield:
		if p, ok := params.(YieldParams); ok {
			return Yield(p), nil
		}
	case analysis.KindGitError:
		if p, ok := params.(GitErrorParams); ok {
			return GitError(p), nil
		}
	default:
		return "", fmt.Errorf("unknown analysis kind %q", kind)
	}
	return "", fmt.Errorf("params %T do not match analysis kind %q", params, kind)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
