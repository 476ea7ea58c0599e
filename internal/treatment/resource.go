// Package treatment builds a budget-constrained treatment plan for a
// diagnosed disease.
package treatment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResourceKind is the closed set of treatment resource categories.
type ResourceKind int

const (
	ChemicalFungicide ResourceKind = iota
	BiologicalControl
	OrganicSpray
	Fertilizer
	CulturalPractice
)

var kindNames = [...]string{
	ChemicalFungicide: "chemical_fungicide",
	BiologicalControl: "biological_control",
	OrganicSpray:      "organic_spray",
	Fertilizer:        "fertilizer",
	CulturalPractice:  "cultural_practice",
}

func (k ResourceKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
	return kindNames[k]
}

func (k ResourceKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ResourceKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseResourceKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func ParseResourceKind(s string) (ResourceKind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(s, n) {
			return ResourceKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource kind %q", s)
}

// Sprayed reports whether the resource is applied as a spray and so depends
// on a dry, calm day.
func (k ResourceKind) Sprayed() bool {
	switch k {
	case ChemicalFungicide, BiologicalControl, OrganicSpray:
		return true
	case Fertilizer, CulturalPractice:
		return false
	}
	return false
}

// Method describes how a resource of kind k is applied.
func (k ResourceKind) Method() string {
	switch k {
	case ChemicalFungicide:
		return "Foliar spray with a knapsack or boom sprayer, wearing protective equipment"
	case BiologicalControl:
		return "Apply as a foliar spray or soil drench in the early morning or evening"
	case OrganicSpray:
		return "Foliar spray covering both leaf surfaces, repeated every 7 days"
	case Fertilizer:
		return "Side-dress around the root zone and water in"
	case CulturalPractice:
		return "Field practice carried out by hand; no application equipment needed"
	}
	return "Follow the product label"
}

// Resource is one catalog entry. Costs are per hectare.
type Resource struct {
	Name           string       `json:"name"`
	Kind           ResourceKind `json:"kind"`
	CostPerHectare float64      `json:"cost_per_hectare"`
	Efficacy       float64      `json:"efficacy"`
	DaysToEffect   int          `json:"days_to_effect"`
	Organic        bool         `json:"organic"`
}

var catalog = []Resource{
	{Name: "Mancozeb 80WP", Kind: ChemicalFungicide, CostPerHectare: 45, Efficacy: 0.70, DaysToEffect: 3},
	{Name: "Copper oxychloride", Kind: ChemicalFungicide, CostPerHectare: 38, Efficacy: 0.60, DaysToEffect: 4, Organic: true},
	{Name: "Metalaxyl + Mancozeb", Kind: ChemicalFungicide, CostPerHectare: 85, Efficacy: 0.85, DaysToEffect: 2},
	{Name: "Trichoderma harzianum", Kind: BiologicalControl, CostPerHectare: 30, Efficacy: 0.45, DaysToEffect: 10, Organic: true},
	{Name: "Bacillus subtilis", Kind: BiologicalControl, CostPerHectare: 40, Efficacy: 0.50, DaysToEffect: 7, Organic: true},
	{Name: "Neem oil", Kind: OrganicSpray, CostPerHectare: 20, Efficacy: 0.35, DaysToEffect: 5, Organic: true},
	{Name: "Baking soda solution", Kind: OrganicSpray, CostPerHectare: 6, Efficacy: 0.20, DaysToEffect: 3, Organic: true},
	{Name: "Potassium sulphate", Kind: Fertilizer, CostPerHectare: 55, Efficacy: 0.15, DaysToEffect: 14},
	{Name: "Compost top-dressing", Kind: Fertilizer, CostPerHectare: 25, Efficacy: 0.10, DaysToEffect: 21, Organic: true},
	{Name: "Remove infected foliage", Kind: CulturalPractice, CostPerHectare: 0, Efficacy: 0.25, DaysToEffect: 0, Organic: true},
	{Name: "Crop rotation plan", Kind: CulturalPractice, CostPerHectare: 0, Efficacy: 0.15, DaysToEffect: 0, Organic: true},
}

// Catalog returns a copy of the built-in resource catalog.
func Catalog() []Resource {
	return append([]Resource(nil), catalog...)
}
