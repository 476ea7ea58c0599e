package treatment

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kalambet/cropdoc/internal/analysis"
	"github.com/kalambet/cropdoc/internal/weather"
)

var ErrInvalidRequest = errors.New("invalid treatment request")

type Request struct {
	Disease       analysis.DiseaseResult `json:"disease"`
	AreaHectares  float64                `json:"area_hectares"`
	Budget        float64                `json:"budget"`
	PreferOrganic bool                   `json:"prefer_organic"`
	// Available restricts the catalog to these resource names. Empty means all.
	Available []string               `json:"available,omitempty"`
	Forecast  []weather.DailySummary `json:"forecast,omitempty"`
}

type Step struct {
	Order        int      `json:"order"`
	Resource     Resource `json:"resource"`
	Method       string   `json:"method"`
	Cost         float64  `json:"cost"`
	ScheduledFor string   `json:"scheduled_for,omitempty"`
}

type Plan struct {
	Steps            []Step   `json:"steps"`
	TotalCost        float64  `json:"total_cost"`
	ExpectedEfficacy float64  `json:"expected_efficacy"`
	TargetEfficacy   float64  `json:"target_efficacy"`
	MeetsTarget      bool     `json:"meets_target"`
	Notes            []string `json:"notes"`
}

// TargetEfficacy is the combined efficacy a plan aims for at each severity.
// Aliases such as High or low are normalised first. Unknown values get the
// Moderate target.
func TargetEfficacy(severity string) float64 {
	severity, _ = analysis.NormalizeSeverity(severity)
	switch severity {
	case analysis.SeverityMild:
		return 0.5
	case analysis.SeveritySevere:
		return 0.85
	default:
		return 0.7
	}
}

// Optimize greedily selects resources by efficacy per unit cost until the
// target is met or the budget is spent. Combined efficacy of independent
// treatments is 1 - Π(1 - e).
func Optimize(req Request) (Plan, error) {
	if req.AreaHectares <= 0 {
		return Plan{}, fmt.Errorf("%w: area must be positive", ErrInvalidRequest)
	}
	if req.Budget < 0 {
		return Plan{}, fmt.Errorf("%w: budget cannot be negative", ErrInvalidRequest)
	}
	if sev := strings.TrimSpace(req.Disease.Severity); sev != "" {
		if _, ok := analysis.NormalizeSeverity(sev); !ok {
			return Plan{}, fmt.Errorf("%w: unknown severity %q", ErrInvalidRequest, req.Disease.Severity)
		}
	}

	plan := Plan{Steps: []Step{}, Notes: []string{}}
	if strings.EqualFold(req.Disease.DiseaseName, "Healthy") {
		plan.MeetsTarget = true
		plan.Notes = append(plan.Notes, "No disease detected; no treatment is needed.")
		return plan, nil
	}
	plan.TargetEfficacy = TargetEfficacy(req.Disease.Severity)

	candidates, err := filter(Catalog(), req.Available)
	if err != nil {
		return Plan{}, err
	}
	rank(candidates, req.AreaHectares, req.PreferOrganic)

	sprayDay, haveWindow := "", false
	if len(req.Forecast) > 0 {
		var d weather.DailySummary
		d, haveWindow = weather.SprayWindow(req.Forecast)
		sprayDay = d.Date
	}

	miss := 1.0
	for _, r := range candidates {
		if 1-miss >= plan.TargetEfficacy {
			break
		}
		cost := round2(r.CostPerHectare * req.AreaHectares)
		if plan.TotalCost+cost > req.Budget {
			continue
		}
		step := Step{
			Order:    len(plan.Steps) + 1,
			Resource: r,
			Method:   r.Kind.Method(),
			Cost:     cost,
		}
		if r.Kind.Sprayed() && haveWindow {
			step.ScheduledFor = sprayDay
		}
		plan.Steps = append(plan.Steps, step)
		plan.TotalCost = round2(plan.TotalCost + cost)
		miss *= 1 - r.Efficacy
	}

	plan.ExpectedEfficacy = round2(1 - miss)
	plan.MeetsTarget = 1-miss >= plan.TargetEfficacy
	if !plan.MeetsTarget {
		plan.Notes = append(plan.Notes, fmt.Sprintf(
			"The budget covers an expected efficacy of %.0f%% against a target of %.0f%%.",
			plan.ExpectedEfficacy*100, plan.TargetEfficacy*100))
	}
	if len(req.Forecast) > 0 && !haveWindow && hasSpray(plan.Steps) {
		plan.Notes = append(plan.Notes, "No suitable spray day in the forecast; wait for dry, calm weather.")
	}
	return plan, nil
}

func filter(all []Resource, names []string) ([]Resource, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Resource, len(all))
	for _, r := range all {
		byName[strings.ToLower(r.Name)] = r
	}
	out := make([]Resource, 0, len(names))
	seen := map[string]bool{}
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		r, ok := byName[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown resource %q", ErrInvalidRequest, n)
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// rank orders candidates by efficacy per cost, free resources first, with
// organic resources ahead when preferred.
func rank(rs []Resource, area float64, preferOrganic bool) {
	score := func(r Resource) float64 {
		cost := r.CostPerHectare * area
		if cost == 0 {
			return math.Inf(1)
		}
		return r.Efficacy / cost
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if preferOrganic && rs[i].Organic != rs[j].Organic {
			return rs[i].Organic
		}
		si, sj := score(rs[i]), score(rs[j])
		if si != sj {
			return si > sj
		}
		if rs[i].Efficacy != rs[j].Efficacy {
			return rs[i].Efficacy > rs[j].Efficacy
		}
		return rs[i].Name < rs[j].Name
	})
}

func hasSpray(steps []Step) bool {
	for _, s := range steps {
		if s.Resource.Kind.Sprayed() {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
