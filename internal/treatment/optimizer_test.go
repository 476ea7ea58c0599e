package treatment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/cropdoc/internal/analysis"
	"github.com/kalambet/cropdoc/internal/weather"
)

func blight(severity string) analysis.DiseaseResult {
	return analysis.DiseaseResult{DiseaseName: "Late Blight", Severity: severity}
}

func names(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Resource.Name
	}
	return out
}

func TestOptimize_SevereMeetsTarget(t *testing.T) {
	plan, err := Optimize(Request{Disease: blight(analysis.SeveritySevere), AreaHectares: 1, Budget: 1000})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Remove infected foliage",
		"Crop rotation plan",
		"Baking soda solution",
		"Neem oil",
		"Copper oxychloride",
	}, names(plan.Steps))
	assert.Equal(t, 64.0, plan.TotalCost)
	assert.Equal(t, 0.87, plan.ExpectedEfficacy)
	assert.Equal(t, 0.85, plan.TargetEfficacy)
	assert.True(t, plan.MeetsTarget)
	assert.Empty(t, plan.Notes)
	for i, s := range plan.Steps {
		assert.Equal(t, i+1, s.Order)
		assert.NotEmpty(t, s.Method)
	}
}

func TestOptimize_ZeroBudgetUsesFreePractices(t *testing.T) {
	plan, err := Optimize(Request{Disease: blight(analysis.SeverityMild), AreaHectares: 3, Budget: 0})
	require.NoError(t, err)

	assert.Equal(t, []string{"Remove infected foliage", "Crop rotation plan"}, names(plan.Steps))
	assert.Equal(t, 0.0, plan.TotalCost)
	assert.Equal(t, 0.36, plan.ExpectedEfficacy)
	assert.False(t, plan.MeetsTarget)
	require.Len(t, plan.Notes, 1)
	assert.Contains(t, plan.Notes[0], "target of 50%")
}

func TestOptimize_SkipsResourcesOverBudget(t *testing.T) {
	plan, err := Optimize(Request{
		Disease:      blight(analysis.SeveritySevere),
		AreaHectares: 2,
		Budget:       100,
		Available:    []string{"mancozeb 80wp", "Neem oil"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Neem oil"}, names(plan.Steps))
	assert.Equal(t, 40.0, plan.TotalCost)
	assert.LessOrEqual(t, plan.TotalCost, 100.0)
	assert.False(t, plan.MeetsTarget)
}

func TestOptimize_PreferOrganic(t *testing.T) {
	plan, err := Optimize(Request{
		Disease:       blight(analysis.SeveritySevere),
		AreaHectares:  1,
		Budget:        1000,
		PreferOrganic: true,
		Available:     []string{"Mancozeb 80WP", "Metalaxyl + Mancozeb", "Trichoderma harzianum", "Bacillus subtilis"},
	})
	require.NoError(t, err)

	// Both organic resources together reach 0.725; the chemicals follow.
	require.Len(t, plan.Steps, 3)
	assert.True(t, plan.Steps[0].Resource.Organic)
	assert.True(t, plan.Steps[1].Resource.Organic)
	assert.False(t, plan.Steps[2].Resource.Organic)
	assert.True(t, plan.MeetsTarget)
}

func TestOptimize_Healthy(t *testing.T) {
	plan, err := Optimize(Request{Disease: analysis.DiseaseResult{DiseaseName: "healthy"}, AreaHectares: 1, Budget: 50})
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
	assert.NotNil(t, plan.Steps)
	assert.True(t, plan.MeetsTarget)
	assert.Equal(t, 0.0, plan.TotalCost)
}

func TestOptimize_InvalidRequests(t *testing.T) {
	cases := []Request{
		{Disease: blight(analysis.SeverityMild), AreaHectares: 0, Budget: 10},
		{Disease: blight(analysis.SeverityMild), AreaHectares: 1, Budget: -1},
		{Disease: blight(analysis.SeverityMild), AreaHectares: 1, Budget: 10, Available: []string{"Snake oil"}},
	}
	for _, req := range cases {
		_, err := Optimize(req)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
}

func TestOptimize_SchedulesSpraysOnWindow(t *testing.T) {
	forecast := []weather.DailySummary{
		{Date: "2026-06-01", MaxPop: 0.8, MaxWindMS: 2},
		{Date: "2026-06-02", MaxPop: 0.1, MaxWindMS: 2},
	}
	plan, err := Optimize(Request{Disease: blight(analysis.SeveritySevere), AreaHectares: 1, Budget: 1000, Forecast: forecast})
	require.NoError(t, err)

	for _, s := range plan.Steps {
		if s.Resource.Kind.Sprayed() {
			assert.Equal(t, "2026-06-02", s.ScheduledFor, s.Resource.Name)
		} else {
			assert.Empty(t, s.ScheduledFor, s.Resource.Name)
		}
	}
}

func TestOptimize_NoSprayWindowNote(t *testing.T) {
	forecast := []weather.DailySummary{{Date: "2026-06-01", MaxPop: 0.9, MaxWindMS: 6}}
	plan, err := Optimize(Request{Disease: blight(analysis.SeveritySevere), AreaHectares: 1, Budget: 1000, Forecast: forecast})
	require.NoError(t, err)

	assert.Contains(t, plan.Notes, "No suitable spray day in the forecast; wait for dry, calm weather.")
	for _, s := range plan.Steps {
		assert.Empty(t, s.ScheduledFor)
	}
}

func TestTargetEfficacy(t *testing.T) {
	assert.Equal(t, 0.5, TargetEfficacy(analysis.SeverityMild))
	assert.Equal(t, 0.7, TargetEfficacy(analysis.SeverityModerate))
	assert.Equal(t, 0.85, TargetEfficacy(analysis.SeveritySevere))
	assert.Equal(t, 0.7, TargetEfficacy(""))

	assert.Equal(t, 0.85, TargetEfficacy("High"))
	assert.Equal(t, 0.85, TargetEfficacy("severe"))
	assert.Equal(t, 0.5, TargetEfficacy("Low"))
	assert.Equal(t, 0.7, TargetEfficacy(" medium "))
}

func TestOptimize_SeverityAliases(t *testing.T) {
	plan, err := Optimize(Request{Disease: blight("High"), AreaHectares: 1, Budget: 1000})
	require.NoError(t, err)
	assert.Equal(t, 0.85, plan.TargetEfficacy)

	plan, err = Optimize(Request{Disease: blight("low"), AreaHectares: 1, Budget: 1000})
	require.NoError(t, err)
	assert.Equal(t, 0.5, plan.TargetEfficacy)
}

func TestOptimize_UnknownSeverity(t *testing.T) {
	_, err := Optimize(Request{Disease: blight("Catastrophic"), AreaHectares: 1, Budget: 100})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestResourceKind(t *testing.T) {
	for k := ChemicalFungicide; k <= CulturalPractice; k++ {
		parsed, err := ParseResourceKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.NotEqual(t, "Follow the product label", k.Method())
	}
	_, err := ParseResourceKind("prayer")
	assert.Error(t, err)
	assert.Equal(t, "ResourceKind(9)", ResourceKind(9).String())

	b, err := json.Marshal(Resource{Name: "x", Kind: OrganicSpray})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"organic_spray"`)

	var back Resource
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, OrganicSpray, back.Kind)
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"prayer"}`), &back))
}

func TestCatalogIsCopy(t *testing.T) {
	c := Catalog()
	c[0].Name = "changed"
	assert.NotEqual(t, "changed", Catalog()[0].Name)
}
