package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/cropdoc/internal/analysis"
	"github.com/kalambet/cropdoc/internal/config"
	"github.com/kalambet/cropdoc/internal/history"
	"github.com/kalambet/cropdoc/internal/imagecodec"
	"github.com/kalambet/cropdoc/internal/profile"
	"github.com/kalambet/cropdoc/internal/service"
	"github.com/kalambet/cropdoc/internal/treatment"
	"github.com/kalambet/cropdoc/internal/weather"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a disease, soil, yield or git error analysis",
}

var analyzeDiseaseCmd = &cobra.Command{
	Use:   "disease",
	Short: "Diagnose a plant disease from leaf photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, _ := cmd.Flags().GetStringSlice("image")
		crop, _ := cmd.Flags().GetString("crop")
		notes, _ := cmd.Flags().GetString("notes")

		images, err := loadImages(files)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		printStep("Analyzing %d image(s)", len(images))
		return runAnalyzeDisease(cmd.Context(), client, cmd.OutOrStdout(), service.DiseaseRequest{
			Images:   images,
			CropHint: crop,
			Notes:    notes,
		})
	},
}

var analyzeSoilCmd = &cobra.Command{
	Use:   "soil",
	Short: "Assess soil from photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, _ := cmd.Flags().GetStringSlice("image")
		location, _ := cmd.Flags().GetString("location")
		notes, _ := cmd.Flags().GetString("notes")

		images, err := loadImages(files)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		printStep("Analyzing %d image(s)", len(images))
		return runAnalyzeSoil(cmd.Context(), client, cmd.OutOrStdout(), service.SoilRequest{
			Images:   images,
			Location: location,
			Notes:    notes,
		})
	},
}

var analyzeYieldCmd = &cobra.Command{
	Use:   "yield",
	Short: "Predict harvest and income for a field",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		req := service.YieldRequest{}
		req.Crop, _ = f.GetString("crop")
		req.AreaHectares, _ = f.GetFloat64("area")
		req.RainfallMM, _ = f.GetFloat64("rainfall")
		req.TemperatureC, _ = f.GetFloat64("temperature")
		req.SoilType, _ = f.GetString("soil")
		req.DiseaseName, _ = f.GetString("disease")
		req.DiseaseSeverity, _ = f.GetString("severity")
		req.PricePerUnit, _ = f.GetFloat64("price")

		files, _ := f.GetStringSlice("image")
		images, err := loadImages(files)
		if err != nil {
			return err
		}
		req.Images = images

		if req.AreaHectares < 0 {
			return errors.New("--area must not be negative")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runAnalyzeYield(cmd.Context(), client, cmd.OutOrStdout(), req)
	},
}

var analyzeGitErrorCmd = &cobra.Command{
	Use:   "git-error",
	Short: "Explain a git error message",
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		command, _ := cmd.Flags().GetString("command")
		if strings.TrimSpace(message) == "" {
			return errors.New("--message is required")
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runAnalyzeGitError(cmd.Context(), client, cmd.OutOrStdout(), service.GitErrorRequest{
			Message: message,
			Command: command,
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{analyzeDiseaseCmd, analyzeSoilCmd} {
		c.Flags().StringSlice("image", nil, "image file (repeatable)")
		c.Flags().String("notes", "", "free-text observations")
		c.MarkFlagRequired("image")
	}
	analyzeDiseaseCmd.Flags().String("crop", "", "crop name hint")
	analyzeSoilCmd.Flags().String("location", "", "field location")

	yf := analyzeYieldCmd.Flags()
	yf.String("crop", "", "crop name (defaults to the profile's only crop)")
	yf.Float64("area", 0, "field area in hectares (defaults to the profile's area)")
	yf.Float64("rainfall", 0, "seasonal rainfall in mm")
	yf.Float64("temperature", 0, "average temperature in °C")
	yf.String("soil", "", "soil type")
	yf.String("disease", "", "current disease, if any")
	yf.String("severity", "", "disease severity (Mild, Moderate, Severe)")
	yf.Float64("price", 0, "market price per unit of yield")
	yf.StringSlice("image", nil, "optional field photo (repeatable)")

	analyzeGitErrorCmd.Flags().String("message", "", "the git error output")
	analyzeGitErrorCmd.Flags().String("command", "", "the command that failed")

	analyzeCmd.AddCommand(analyzeDiseaseCmd, analyzeSoilCmd, analyzeYieldCmd, analyzeGitErrorCmd)
}

// loadImages reads and encodes image files in order.
func loadImages(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading image: %w", err)
		}
		enc, err := imagecodec.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, enc)
	}
	return out, nil
}

func postAnalysis[T any](ctx context.Context, client *apiClient, kind analysis.Kind, req any) (service.Outcome[T], error) {
	var out service.Outcome[T]
	resp, err := client.post(ctx, "/v1/analyses/"+string(kind), req)
	if err != nil {
		return out, err
	}
	if err := decodeJSON(resp, &out); err != nil {
		if isStatus(err, http.StatusConflict) {
			return out, errors.New("a newer request in this session replaced this one")
		}
		return out, err
	}
	return out, nil
}

func runAnalyzeDisease(ctx context.Context, client *apiClient, w io.Writer, req service.DiseaseRequest) error {
	out, err := postAnalysis[analysis.DiseaseResult](ctx, client, analysis.KindDisease, req)
	if err != nil {
		return err
	}
	r := out.Result
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("Diagnosis:"), severityColor(r.Severity).Sprint(r.DiseaseName))
	field(w, "Crop", r.CropType)
	field(w, "Confidence", confidenceLabel(r.Confidence))
	field(w, "Severity", severityColor(r.Severity).Sprint(r.Severity))
	field(w, "Spread risk", r.SpreadRisk)
	field(w, "Recovery chance", r.RecoveryChance)
	field(w, "Yield impact", r.YieldImpact)
	field(w, "Description", r.Description)
	list(w, "Treatment", r.Treatment)
	list(w, "Recommendations", r.Recommendations)
	printFooter(w, out.Source, out.RecordID, out.Notice)
	return nil
}

func runAnalyzeSoil(ctx context.Context, client *apiClient, w io.Writer, req service.SoilRequest) error {
	out, err := postAnalysis[analysis.SoilResult](ctx, client, analysis.KindSoil, req)
	if err != nil {
		return err
	}
	r := out.Result
	field(w, "Soil type", r.SoilType)
	field(w, "Confidence", confidenceLabel(r.Confidence))
	field(w, "pH", r.PHLevel)
	if len(r.Nutrients) > 0 {
		fmt.Fprintln(w, labelColor.Sprint("Nutrients:"))
		for _, n := range r.Nutrients {
			fmt.Fprintf(w, "  • %-12s %s", n.Name, severityColor(n.Level).Sprint(n.Level))
			if n.Recommendation != "" {
				fmt.Fprintf(w, "  %s", n.Recommendation)
			}
			fmt.Fprintln(w)
		}
	}
	list(w, "Recommendations", r.Recommendations)
	printFooter(w, out.Source, out.RecordID, out.Notice)
	return nil
}

func runAnalyzeYield(ctx context.Context, client *apiClient, w io.Writer, req service.YieldRequest) error {
	out, err := postAnalysis[analysis.YieldResult](ctx, client, analysis.KindYield, req)
	if err != nil {
		return err
	}
	r := out.Result
	field(w, "Predicted yield", fmt.Sprintf("%.2f %s", r.PredictedYield, r.YieldUnit))
	field(w, "Potential income", fmt.Sprintf("%.2f", r.PotentialIncome))
	field(w, "Confidence", confidenceLabel(r.Confidence))
	if r.DiseaseLossPercent != nil {
		field(w, "Disease loss", fmt.Sprintf("%.1f%%", *r.DiseaseLossPercent))
	}
	list(w, "Recommendations", r.Recommendations)
	printFooter(w, out.Source, out.RecordID, out.Notice)
	return nil
}

func runAnalyzeGitError(ctx context.Context, client *apiClient, w io.Writer, req service.GitErrorRequest) error {
	out, err := postAnalysis[analysis.GitErrorResult](ctx, client, analysis.KindGitError, req)
	if err != nil {
		return err
	}
	r := out.Result
	field(w, "Error", r.Error)
	field(w, "Analysis", r.Analysis)
	field(w, "Confidence", confidenceLabel(r.Confidence))
	list(w, "Try", r.SuggestedCommands)
	printFooter(w, out.Source, out.RecordID, out.Notice)
	return nil
}

func printFooter(w io.Writer, source, recordID, notice string) {
	if notice != "" {
		fmt.Fprintln(w, warnColor.Sprint(notice))
	}
	field(w, "Source", source)
	field(w, "Record", recordID)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		recordType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runHistory(cmd.Context(), client, cmd.OutOrStdout(), recordType, limit)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one stored analysis as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runHistoryShow(cmd.Context(), client, cmd.OutOrStdout(), args[0])
	},
}

func init() {
	historyCmd.Flags().String("type", "", "filter by analysis type (disease, soil, yield, git-error)")
	historyCmd.Flags().Int("limit", 10, "max records to show")
	historyCmd.AddCommand(historyShowCmd)
}

func runHistory(ctx context.Context, client *apiClient, w io.Writer, recordType string, limit int) error {
	q := url.Values{}
	if recordType != "" {
		q.Set("type", recordType)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := client.get(ctx, path)
	if err != nil {
		return err
	}
	var recs []history.Record
	if err := decodeJSON(resp, &recs); err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "No analyses stored yet.")
		return nil
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%s  %-9s  %s\n", r.Timestamp, r.Type, labelColor.Sprint(r.ID))
	}
	return nil
}

func runHistoryShow(ctx context.Context, client *apiClient, w io.Writer, id string) error {
	resp, err := client.get(ctx, "/v1/history/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	var rec history.Record
	if err := decodeJSON(resp, &rec); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return fmt.Errorf("no stored analysis with id %q", id)
		}
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// --- weather ---

var (
	weatherPlace string
	weatherLat   float64
	weatherLon   float64
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Show the forecast and farming advisories for a location",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := locationQuery(cmd, weatherPlace, weatherLat, weatherLon)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runWeather(cmd.Context(), client, cmd.OutOrStdout(), q)
	},
}

func init() {
	weatherCmd.Flags().StringVar(&weatherPlace, "place", "", "place name (defaults to the profile location)")
	weatherCmd.Flags().Float64Var(&weatherLat, "lat", 0, "latitude")
	weatherCmd.Flags().Float64Var(&weatherLon, "lon", 0, "longitude")
}

// locationQuery builds a weather query from --place or the --lat/--lon pair.
func locationQuery(cmd *cobra.Command, place string, lat, lon float64) (weather.Query, error) {
	q := weather.Query{Place: strings.TrimSpace(place)}
	latSet := cmd.Flags().Changed("lat")
	lonSet := cmd.Flags().Changed("lon")
	if latSet != lonSet {
		return q, errors.New("--lat and --lon must be given together")
	}
	if latSet {
		q.Lat, q.Lon = &lat, &lon
	}
	return q, nil
}

func weatherPath(q weather.Query) string {
	v := url.Values{}
	if q.Place != "" {
		v.Set("place", q.Place)
	}
	if q.Lat != nil && q.Lon != nil {
		v.Set("lat", strconv.FormatFloat(*q.Lat, 'f', -1, 64))
		v.Set("lon", strconv.FormatFloat(*q.Lon, 'f', -1, 64))
	}
	if len(v) == 0 {
		return "/v1/weather"
	}
	return "/v1/weather?" + v.Encode()
}

func runWeather(ctx context.Context, client *apiClient, w io.Writer, q weather.Query) error {
	resp, err := client.get(ctx, weatherPath(q))
	if err != nil {
		return err
	}
	var rep weather.Report
	if err := decodeJSON(resp, &rep); err != nil {
		if isStatus(err, http.StatusServiceUnavailable) {
			printWarning("set CROPDOC_WEATHER_API_KEY to enable weather")
		}
		return err
	}

	name := rep.Location.Name
	if rep.Location.Country != "" {
		name += ", " + rep.Location.Country
	}
	field(w, "Location", name)
	field(w, "Now", fmt.Sprintf("%.1f°C, %d%% humidity, %s", rep.Current.TempC, rep.Current.Humidity, rep.Current.Description))
	if len(rep.Daily) > 0 {
		fmt.Fprintln(w, labelColor.Sprint("Forecast:"))
		for _, d := range rep.Daily {
			fmt.Fprintf(w, "  %s  %5.1f–%4.1f°C  rain %4.1fmm  %s\n", d.Date, d.MinTempC, d.MaxTempC, d.RainMM, d.Condition)
		}
	}
	if len(rep.Advisories) == 0 {
		fmt.Fprintln(w, successColor.Sprint("No weather advisories."))
		return nil
	}
	fmt.Fprintln(w, labelColor.Sprint("Advisories:"))
	for _, a := range rep.Advisories {
		c := warnColor
		if a.Kind == weather.AdvisorySprayWindow {
			c = successColor
		}
		fmt.Fprintf(w, "  %s %s\n", c.Sprint("•"), a.Message)
	}
	return nil
}

// --- plan ---

var (
	planRecord   string
	planDisease  string
	planSeverity string
	planArea     float64
	planBudget   float64
	planOrganic  bool
	planOnly     []string
	planPlace    string
	planLat      float64
	planLon      float64
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a budgeted treatment plan for a diagnosed disease",
	RunE: func(cmd *cobra.Command, args []string) error {
		if planRecord == "" && strings.TrimSpace(planDisease) == "" {
			return errors.New("either --record or --disease is required")
		}
		q, err := locationQuery(cmd, planPlace, planLat, planLon)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := planRequest{
			Request: treatment.Request{
				AreaHectares:  planArea,
				Budget:        planBudget,
				PreferOrganic: planOrganic,
				Available:     planOnly,
			},
			Place: q.Place,
			Lat:   q.Lat,
			Lon:   q.Lon,
		}
		if planRecord != "" {
			d, err := diseaseFromRecord(cmd.Context(), client, planRecord)
			if err != nil {
				return err
			}
			req.Disease = d
		} else {
			req.Disease = analysis.DiseaseResult{DiseaseName: planDisease, Severity: planSeverity}
		}
		return runPlan(cmd.Context(), client, cmd.OutOrStdout(), req)
	},
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planRecord, "record", "", "history id of a disease analysis")
	f.StringVar(&planDisease, "disease", "", "disease name when no record is given")
	f.StringVar(&planSeverity, "severity", analysis.SeverityModerate, "disease severity when no record is given")
	f.Float64Var(&planArea, "area", 0, "treated area in hectares (defaults to the profile's area)")
	f.Float64Var(&planBudget, "budget", 0, "total budget")
	f.BoolVar(&planOrganic, "organic", false, "prefer organic resources")
	f.StringSliceVar(&planOnly, "only", nil, "restrict to these resources (repeatable)")
	f.StringVar(&planPlace, "place", "", "place name for spray scheduling")
	f.Float64Var(&planLat, "lat", 0, "latitude for spray scheduling")
	f.Float64Var(&planLon, "lon", 0, "longitude for spray scheduling")
}

// planRequest mirrors the server's plan body.
type planRequest struct {
	treatment.Request
	Place string   `json:"place,omitempty"`
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
}

func diseaseFromRecord(ctx context.Context, client *apiClient, id string) (analysis.DiseaseResult, error) {
	var d analysis.DiseaseResult
	resp, err := client.get(ctx, "/v1/history/"+url.PathEscape(id))
	if err != nil {
		return d, err
	}
	var rec history.Record
	if err := decodeJSON(resp, &rec); err != nil {
		return d, err
	}
	if rec.Type != string(analysis.KindDisease) {
		return d, fmt.Errorf("record %s is a %s analysis, not disease", id, rec.Type)
	}
	if err := json.Unmarshal(rec.Payload, &d); err != nil {
		return d, fmt.Errorf("decoding record %s: %w", id, err)
	}
	return d, nil
}

func runPlan(ctx context.Context, client *apiClient, w io.Writer, req planRequest) error {
	resp, err := client.post(ctx, "/v1/treatments/plan", req)
	if err != nil {
		return err
	}
	var plan treatment.Plan
	if err := decodeJSON(resp, &plan); err != nil {
		return err
	}

	for _, s := range plan.Steps {
		fmt.Fprintf(w, "%d. %s (%s)  %.2f\n", s.Order, labelColor.Sprint(s.Resource.Name), s.Resource.Kind, s.Cost)
		fmt.Fprintf(w, "   %s\n", s.Method)
		if s.ScheduledFor != "" {
			fmt.Fprintf(w, "   %s %s\n", successColor.Sprint("spray on"), s.ScheduledFor)
		}
	}
	field(w, "Total cost", fmt.Sprintf("%.2f", plan.TotalCost))
	eff := fmt.Sprintf("%.0f%% (target %.0f%%)", plan.ExpectedEfficacy*100, plan.TargetEfficacy*100)
	if plan.MeetsTarget {
		field(w, "Expected efficacy", successColor.Sprint(eff))
	} else {
		field(w, "Expected efficacy", warnColor.Sprint(eff))
	}
	for _, n := range plan.Notes {
		fmt.Fprintln(w, warnColor.Sprint(n))
	}
	return nil
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the farm profile used to fill in missing request fields",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the farm profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runProfileShow(cmd.Context(), client, cmd.OutOrStdout())
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a profile field (empty value clears it)",
	Long:  "Set a profile field. Valid keys: " + strings.Join(profile.Keys(), ", ") + ".",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := runProfileSet(cmd.Context(), client, args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd, profileSetCmd)
}

func runProfileShow(ctx context.Context, client *apiClient, w io.Writer) error {
	resp, err := client.get(ctx, "/v1/profile")
	if err != nil {
		return err
	}
	var p profile.Profile
	if err := decodeJSON(resp, &p); err != nil {
		return err
	}

	field(w, "Farm", p.FarmName)
	loc := p.Place
	if p.Lat != nil && p.Lon != nil {
		coords := fmt.Sprintf("%.4f, %.4f", *p.Lat, *p.Lon)
		if loc == "" {
			loc = coords
		} else {
			loc += " (" + coords + ")"
		}
	}
	field(w, "Location", loc)
	field(w, "Crops", strings.Join(p.Crops, ", "))
	if p.AreaHectares > 0 {
		field(w, "Area", fmt.Sprintf("%g ha", p.AreaHectares))
	}
	field(w, "Prefer organic", strconv.FormatBool(p.PreferOrganic))
	return nil
}

func runProfileSet(ctx context.Context, client *apiClient, key, value string) error {
	resp, err := client.do(ctx, http.MethodPut, "/v1/profile/"+url.PathEscape(key), map[string]string{"value": value})
	if err != nil {
		return err
	}
	var p profile.Profile
	return decodeJSON(resp, &p)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		printConfig(cmd.OutOrStdout(), config.ShowAll(cfg))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}

func printConfig(w io.Writer, keys []config.KeyInfo) {
	for _, k := range keys {
		fmt.Fprintf(w, "%-26s %-32s %s\n", labelColor.Sprint(k.Key), k.Value, stepColor.Sprint(k.EnvVar))
	}
}
