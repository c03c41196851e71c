package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"racecalc/internal/analysis"
	"racecalc/internal/config"
	"racecalc/internal/fitfile"
	"racecalc/internal/store"
	"racecalc/internal/timefmt"
)

// ErrNoFTPEffort is returned when an imported ride has no 20-minute power
var ErrNoFTPEffort = errors.New("ride has less than 20 minutes of power data")

// PlannerService turns stored field tests and config into zones and
// race predictions, and keeps the prediction history
type PlannerService struct {
	store  *store.Store
	cfg    *config.Config
	logger *log.Logger
	now    func() time.Time
}

// NewPlannerService creates a planner over the store and config
func NewPlannerService(st *store.Store, cfg *config.Config, logger *log.Logger) *PlannerService {
	return &PlannerService{store: st, cfg: cfg, logger: logger, now: time.Now}
}

// Profile is the stored athlete profile over the configured fallback.
// Stored non-zero values win.
func (p *PlannerService) Profile(ctx context.Context) (store.Profile, error) {
	prof := profileFromConfig(p.cfg.Athlete)

	stored, err := p.store.GetProfile(ctx)
	if errors.Is(err, store.ErrNoProfile) {
		return prof, nil
	}
	if err != nil {
		return prof, fmt.Errorf("loading profile: %w", err)
	}

	overlay := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	overlay(&prof.FTPWatts, stored.FTPWatts)
	overlay(&prof.AthleteWeightKg, stored.AthleteWeightKg)
	overlay(&prof.BikeWeightKg, stored.BikeWeightKg)
	overlay(&prof.MaxHR, stored.MaxHR)
	overlay(&prof.RestingHR, stored.RestingHR)
	overlay(&prof.SwimCSSSeconds, stored.SwimCSSSeconds)
	overlay(&prof.RunThresholdSeconds, stored.RunThresholdSeconds)
	prof.Source = stored.Source
	prof.UpdatedAt = stored.UpdatedAt
	return prof, nil
}

func profileFromConfig(a config.AthleteConfig) store.Profile {
	prof := store.Profile{
		FTPWatts:        a.FTPWatts,
		AthleteWeightKg: a.WeightKg,
		BikeWeightKg:    a.BikeWeightKg,
		MaxHR:           a.MaxHR,
		RestingHR:       a.RestingHR,
		Source:          SourceConfig,
	}
	// Validate has already rejected malformed text; leave unknown at 0
	if secs, err := timefmt.Parse(a.SwimCSS); err == nil {
		prof.SwimCSSSeconds = float64(secs)
	}
	if secs, err := timefmt.Parse(a.RunThresholdPace); err == nil {
		prof.RunThresholdSeconds = float64(secs)
	}
	return prof
}

// ZoneSet holds every table the profile supports; a nil table means the
// reference value is unknown
type ZoneSet struct {
	Profile   store.Profile
	Swim      []analysis.Zone
	Bike      []analysis.Zone
	Run       []analysis.Zone
	HeartRate []analysis.Zone
}

// Zones builds all four tables from the current profile
func (p *PlannerService) Zones(ctx context.Context) (*ZoneSet, error) {
	prof, err := p.Profile(ctx)
	if err != nil {
		return nil, err
	}

	set := &ZoneSet{Profile: prof}
	if prof.SwimCSSSeconds > 0 {
		if set.Swim, err = analysis.SwimPaceZones(prof.SwimCSSSeconds); err != nil {
			return nil, fmt.Errorf("swim zones: %w", err)
		}
	}
	if prof.FTPWatts > 0 {
		if set.Bike, err = analysis.BikePowerZones(prof.FTPWatts); err != nil {
			return nil, fmt.Errorf("bike zones: %w", err)
		}
	}
	if prof.RunThresholdSeconds > 0 {
		if set.Run, err = analysis.RunPaceZones(prof.RunThresholdSeconds); err != nil {
			return nil, fmt.Errorf("run zones: %w", err)
		}
	}
	if prof.MaxHR > 0 && prof.RestingHR > 0 {
		if set.HeartRate, err = analysis.HeartRateZones(prof.MaxHR, prof.RestingHR); err != nil {
			return nil, fmt.Errorf("heart rate zones: %w", err)
		}
	}
	return set, nil
}

// BikeResult is a bike prediction and its history id
type BikeResult struct {
	ID         string                  `json:"id"`
	Prediction analysis.BikePrediction `json:"prediction"`
}

// TriathlonResult is a triathlon prediction and its history id
type TriathlonResult struct {
	ID         string                       `json:"id"`
	Prediction analysis.TriathlonPrediction `json:"prediction"`
}

// PredictBike forecasts a bike race and records it in the history
func (p *PlannerService) PredictBike(ctx context.Context, req BikeRequest) (*BikeResult, error) {
	prof, err := p.Profile(ctx)
	if err != nil {
		return nil, err
	}
	segments, err := segmentsFor(req)
	if err != nil {
		return nil, err
	}

	pred, err := analysis.PredictBikeRace(p.rider(prof, req), p.ftpPercentage(req), segments, p.environment(req))
	if err != nil {
		return nil, err
	}

	id, err := p.savePrediction(ctx, store.PredictionBike, "", pred.TotalTimeSeconds, pred)
	if err != nil {
		return nil, err
	}
	p.logger.Printf("bike prediction %s: %.1f km at %.0f W (%.0f%% FTP) -> %s",
		id, pred.TotalDistanceKm, pred.TargetPowerWatts, pred.FTPPercentage, timefmt.FormatSeconds(pred.TotalTimeSeconds))
	if !pred.Converged() {
		p.logger.Printf("bike prediction %s: solver fell back to best estimate on at least one segment", id)
	}
	return &BikeResult{ID: id, Prediction: pred}, nil
}

// PredictTriathlon forecasts a full race and records it in the history.
// Missing swim and run baselines come from the latest field tests.
func (p *PlannerService) PredictTriathlon(ctx context.Context, req TriathlonRequest) (*TriathlonResult, error) {
	prof, err := p.Profile(ctx)
	if err != nil {
		return nil, err
	}

	swim, err := p.swimBaseline(prof, req)
	if err != nil {
		return nil, err
	}
	venue, err := analysis.ParseVenue(req.Venue)
	if err != nil {
		return nil, err
	}
	swell, err := analysis.ParseSwell(req.Swell)
	if err != nil {
		return nil, err
	}
	swim.Venue, swim.Swell, swim.Wetsuit = venue, swell, req.Wetsuit

	run, err := p.runBaseline(ctx, prof, req)
	if err != nil {
		return nil, err
	}

	in := analysis.TriathlonInput{
		SwimDistanceM: req.SwimDistanceM,
		Swim:          swim,
		Bike: analysis.TriathlonBike{
			Profile:        p.rider(prof, req.Bike),
			FTPPercentage:  p.ftpPercentage(req.Bike),
			DistanceKm:     req.Bike.DistanceKm,
			ElevationGainM: req.Bike.ElevationGainM,
			Segments:       req.Bike.Segments,
			Environment:    p.environment(req.Bike),
		},
		Run: run,
		T1:  req.T1,
		T2:  req.T2,
	}

	pred, err := analysis.PredictTriathlon(in)
	if err != nil {
		return nil, err
	}

	id, err := p.savePrediction(ctx, store.PredictionTriathlon, pred.RaceType.String(), pred.TotalTimeSeconds, pred)
	if err != nil {
		return nil, err
	}
	p.logger.Printf("triathlon prediction %s: %s swim %s bike %s run %s total %s",
		id, pred.RaceType,
		timefmt.FormatSeconds(pred.Swim.TimeSeconds),
		timefmt.FormatSeconds(pred.Bike.TimeSeconds),
		timefmt.FormatSeconds(pred.Run.TimeSeconds),
		timefmt.FormatSeconds(pred.TotalTimeSeconds))
	return &TriathlonResult{ID: id, Prediction: pred}, nil
}

func (p *PlannerService) swimBaseline(prof store.Profile, req TriathlonRequest) (analysis.TriathlonSwim, error) {
	if req.SwimBaselineTime == "" {
		if prof.SwimCSSSeconds <= 0 {
			return analysis.TriathlonSwim{}, &analysis.ValidationError{
				Field:  "swim baseline",
				Reason: "give a baseline time or record a swim_css test",
			}
		}
		return analysis.TriathlonSwim{BaselineDistanceM: CSSBaselineMeters, BaselineTimeSeconds: prof.SwimCSSSeconds}, nil
	}

	secs, err := ParseLegDuration(req.SwimBaselineTime)
	if err != nil {
		return analysis.TriathlonSwim{}, fmt.Errorf("swim baseline: %w", err)
	}
	return analysis.TriathlonSwim{BaselineDistanceM: req.SwimBaselineDistanceM, BaselineTimeSeconds: secs}, nil
}

// runBaseline prefers the request, then the latest run_performance test,
// then the threshold pace held over ThresholdRunBaseKm
func (p *PlannerService) runBaseline(ctx context.Context, prof store.Profile, req TriathlonRequest) (analysis.TriathlonRun, error) {
	run := analysis.TriathlonRun{DistanceKm: req.RunDistanceKm}

	if req.RunBaseTime != "" {
		secs, err := ParseLegDuration(req.RunBaseTime)
		if err != nil {
			return run, fmt.Errorf("run base: %w", err)
		}
		run.BaseDistanceKm, run.BaseTimeSeconds = req.RunBaseDistanceKm, secs
		return run, nil
	}

	ft, err := p.store.LatestFieldTest(ctx, store.KindRunPerformance)
	switch {
	case err == nil && ft.DistanceMeters != nil:
		run.BaseDistanceKm, run.BaseTimeSeconds = *ft.DistanceMeters/MetersPerKm, ft.Value
		return run, nil
	case err != nil && !errors.Is(err, store.ErrFieldTestNotFound):
		return run, fmt.Errorf("loading run test: %w", err)
	}

	if prof.RunThresholdSeconds > 0 {
		run.BaseDistanceKm = ThresholdRunBaseKm
		run.BaseTimeSeconds = prof.RunThresholdSeconds * ThresholdRunBaseKm
		return run, nil
	}
	return run, &analysis.ValidationError{
		Field:  "run base",
		Reason: "give a base time or record a run_performance or run_threshold test",
	}
}

func (p *PlannerService) rider(prof store.Profile, req BikeRequest) analysis.AthleteProfile {
	rider := analysis.AthleteProfile{
		FTPWatts:        prof.FTPWatts,
		AthleteWeightKg: prof.AthleteWeightKg,
		BikeWeightKg:    prof.BikeWeightKg,
	}
	if req.FTPWatts > 0 {
		rider.FTPWatts = req.FTPWatts
	}
	if req.AthleteWeightKg > 0 {
		rider.AthleteWeightKg = req.AthleteWeightKg
	}
	if req.BikeWeightKg > 0 {
		rider.BikeWeightKg = req.BikeWeightKg
	}
	return rider
}

func (p *PlannerService) ftpPercentage(req BikeRequest) float64 {
	if req.FTPPercentage != 0 {
		return req.FTPPercentage
	}
	return p.cfg.Bike.FTPPercentage
}

func (p *PlannerService) environment(req BikeRequest) analysis.Environment {
	env := analysis.Environment{
		WindSpeedMs:  req.WindSpeedMs,
		TemperatureC: req.TemperatureC,
		CdA:          req.CdA,
		Crr:          req.Crr,
	}
	if env.CdA == nil && p.cfg.Bike.CdA > 0 {
		env.CdA = analysis.Float(p.cfg.Bike.CdA)
	}
	if env.Crr == nil && p.cfg.Bike.Crr > 0 {
		env.Crr = analysis.Float(p.cfg.Bike.Crr)
	}
	return env
}

func (p *PlannerService) savePrediction(ctx context.Context, kind, raceType string, total float64, result any) (string, error) {
	summary, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encoding prediction: %w", err)
	}
	rec := &store.Prediction{
		Kind:         kind,
		RaceType:     raceType,
		TotalSeconds: total,
		Summary:      summary,
		ComputedAt:   p.now().UTC().Truncate(time.Second),
	}
	if err := p.store.SavePrediction(ctx, rec); err != nil {
		return "", fmt.Errorf("saving prediction: %w", err)
	}
	return rec.ID, nil
}

// FieldTestInput is a new measurement. Value units depend on Kind, see
// store.FieldTestKind.
type FieldTestInput struct {
	Kind            store.FieldTestKind
	Value           float64
	DistanceMeters  float64
	DurationSeconds float64
	Source          string
	TestedAt        time.Time
}

// RecordFieldTest stores a test and folds it into the profile. A 20-minute
// power test sets FTP to 95% of the test power.
func (p *PlannerService) RecordFieldTest(ctx context.Context, in FieldTestInput) (*store.FieldTest, error) {
	if !in.Kind.Valid() {
		return nil, &analysis.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown field test kind %q", in.Kind)}
	}
	if !(in.Value > 0) {
		return nil, &analysis.ValidationError{Field: "value", Reason: fmt.Sprintf("must be positive, got %v", in.Value)}
	}
	if in.Kind == store.KindRunPerformance && !(in.DistanceMeters > 0) {
		return nil, &analysis.ValidationError{Field: "distance", Reason: "a run performance needs its distance"}
	}

	var update func(*store.Profile)
	switch in.Kind {
	case store.KindFTP20Min, store.KindFTP60Min:
		test := analysis.Test20Min
		if in.Kind == store.KindFTP60Min {
			test = analysis.Test60Min
		}
		ftp, err := analysis.EstimateFTP(in.Value, test)
		if err != nil {
			return nil, err
		}
		update = func(pr *store.Profile) { pr.FTPWatts = ftp }
	case store.KindSwimCSS:
		update = func(pr *store.Profile) { pr.SwimCSSSeconds = in.Value }
	case store.KindRunThreshold:
		update = func(pr *store.Profile) { pr.RunThresholdSeconds = in.Value }
	case store.KindHeartRate:
		update = func(pr *store.Profile) { pr.MaxHR = in.Value }
	}

	ft := &store.FieldTest{
		Kind:     in.Kind,
		Value:    in.Value,
		Source:   in.Source,
		TestedAt: in.TestedAt,
	}
	if in.DistanceMeters > 0 {
		ft.DistanceMeters = &in.DistanceMeters
	}
	if in.DurationSeconds > 0 {
		ft.DurationSeconds = &in.DurationSeconds
	}
	if err := p.store.AddFieldTest(ctx, ft); err != nil {
		return nil, fmt.Errorf("saving field test: %w", err)
	}

	if update != nil {
		if err := p.updateProfile(ctx, SourceFieldTest, update); err != nil {
			return nil, err
		}
	}
	p.logger.Printf("field test %s: %s = %v (%s)", ft.ID, ft.Kind, ft.Value, ft.Source)
	return ft, nil
}

// updateProfile applies fn to the stored profile only, so config values
// stay a fallback rather than being copied in
func (p *PlannerService) updateProfile(ctx context.Context, source string, fn func(*store.Profile)) error {
	prof, err := p.store.GetProfile(ctx)
	if errors.Is(err, store.ErrNoProfile) {
		prof = &store.Profile{}
	} else if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	fn(prof)
	prof.Source = source
	prof.UpdatedAt = time.Time{}
	if err := p.store.SaveProfile(ctx, prof); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// ImportResult is what a FIT import recorded
type ImportResult struct {
	Summary *fitfile.Summary
	Tests   []store.FieldTest
}

// ImportFIT reads a ride and records its best 20-minute power as a field
// test. When the best hour beats 95% of that, it is recorded too and
// becomes the FTP.
func (p *PlannerService) ImportFIT(ctx context.Context, path string) (*ImportResult, error) {
	summary, err := fitfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !summary.HasTwentyMinutes() {
		return nil, ErrNoFTPEffort
	}

	res := &ImportResult{Summary: summary}
	twenty, err := p.RecordFieldTest(ctx, FieldTestInput{
		Kind:            store.KindFTP20Min,
		Value:           summary.Best20MinPower,
		DurationSeconds: 20 * 60,
		Source:          SourceFIT,
		TestedAt:        summary.StartTime,
	})
	if err != nil {
		return nil, err
	}
	res.Tests = append(res.Tests, *twenty)

	fromTwenty, err := analysis.EstimateFTP(summary.Best20MinPower, analysis.Test20Min)
	if err != nil {
		return nil, err
	}
	if summary.HasHour() && summary.Best60MinPower > fromTwenty {
		hour, err := p.RecordFieldTest(ctx, FieldTestInput{
			Kind:            store.KindFTP60Min,
			Value:           summary.Best60MinPower,
			DurationSeconds: 60 * 60,
			Source:          SourceFIT,
			TestedAt:        summary.StartTime,
		})
		if err != nil {
			return nil, err
		}
		res.Tests = append(res.Tests, *hour)
	}
	return res, nil
}

// History lists stored predictions newest first. Empty kind lists all.
func (p *PlannerService) History(ctx context.Context, kind string, limit int) ([]store.Prediction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	preds, err := p.store.ListPredictions(ctx, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("listing predictions: %w", err)
	}
	return preds, nil
}

// LastBikePrediction decodes the most recent bike prediction, or returns
// store.ErrPredictionNotFound
func (p *PlannerService) LastBikePrediction(ctx context.Context) (*analysis.BikePrediction, error) {
	preds, err := p.History(ctx, store.PredictionBike, 1)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, store.ErrPredictionNotFound
	}
	var pred analysis.BikePrediction
	if err := json.Unmarshal(preds[0].Summary, &pred); err != nil {
		return nil, fmt.Errorf("decoding prediction %s: %w", preds[0].ID, err)
	}
	return &pred, nil
}
