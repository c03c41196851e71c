package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"racecalc/internal/analysis"
	"racecalc/internal/api"
	"racecalc/internal/auth"
	"racecalc/internal/config"
	"racecalc/internal/service"
	"racecalc/internal/store"
	"racecalc/internal/strava"
	"racecalc/internal/timefmt"
	"racecalc/internal/tui"
)

func runTUI(ctx context.Context, args []string) error {
	fs, configPath := newFlags("tui")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	p := tea.NewProgram(tui.NewApp(ctx, e.planner, e.cfg.Display), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func runZones(ctx context.Context, args []string) error {
	fs, configPath := newFlags("zones")
	var req service.ZoneRequest
	fs.StringVar(&req.Sport, "sport", "", "one table from explicit numbers: swim, bike, run or hr")
	fs.StringVar(&req.ThresholdPace, "pace", "", "threshold pace, per 100m for swim or per km for run")
	fs.Float64Var(&req.FTPWatts, "ftp", 0, "FTP in watts")
	fs.Float64Var(&req.TestPowerWatts, "test-power", 0, "average power of an FTP test")
	fs.IntVar(&req.TestMinutes, "test-minutes", 20, "FTP test duration, 20 or 60")
	fs.Float64Var(&req.MaxHR, "max-hr", 0, "maximum heart rate")
	fs.Float64Var(&req.RestingHR, "resting-hr", 0, "resting heart rate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if req.Sport != "" {
		zones, err := service.CalculateZones(req)
		if err != nil {
			return err
		}
		printZones(strings.ToUpper(req.Sport)+" zones", zones, "")
		return nil
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	set, err := e.planner.Zones(ctx)
	if err != nil {
		return err
	}
	p := set.Profile
	fmt.Printf("Profile source: %s\n\n", p.Source)
	printZones(fmt.Sprintf("Swim (CSS %s)", timefmt.FormatPace(p.SwimCSSSeconds, analysis.SwimPaceUnit)), set.Swim, "set athlete.swim_css or record a swim_css test")
	printZones(fmt.Sprintf("Bike (FTP %.0fW)", p.FTPWatts), set.Bike, "set athlete.ftp_watts or record an FTP test")
	printZones(fmt.Sprintf("Run (threshold %s)", timefmt.FormatPace(p.RunThresholdSeconds, analysis.RunPaceUnit)), set.Run, "set athlete.run_threshold_pace or record a run_threshold test")
	printZones(fmt.Sprintf("Heart rate (max %.0f, resting %.0f)", p.MaxHR, p.RestingHR), set.HeartRate, "set athlete.max_hr and athlete.resting_hr")
	return nil
}

func printZones(title string, zones []analysis.Zone, hint string) {
	fmt.Println(title)
	if len(zones) == 0 {
		fmt.Printf("  not available: %s\n\n", hint)
		return
	}
	for _, z := range zones {
		fmt.Printf("  Z%d  %-22s %s\n", z.Index, z.Name, z.DisplayRange)
	}
	fmt.Println()
}

// bikeFlags are the course and rider overrides shared by bike and tri
type bikeFlags struct {
	pct, distance, elevation float64
	wind, temp, cda, crr     float64
	ftp, weight, bikeWeight  float64
	segments                 string
}

func addBikeFlags(fs *pflag.FlagSet, distanceFlag string) *bikeFlags {
	b := &bikeFlags{}
	fs.Float64Var(&b.pct, "pct", 0, "target power as % of FTP (default bike.ftp_percentage)")
	fs.Float64Var(&b.distance, distanceFlag, 0, "bike distance in km")
	fs.Float64Var(&b.elevation, "elevation", 0, "total elevation gain in m, spread evenly")
	fs.StringVar(&b.segments, "segments", "", `course as "km:gradient,..." e.g. "10:0,5:4.5,5:-4"`)
	fs.Float64Var(&b.wind, "wind", 0, "headwind in m/s, negative for tailwind")
	fs.Float64Var(&b.temp, "temp", 0, "air temperature in C")
	fs.Float64Var(&b.cda, "cda", 0, "drag area in m^2 (default bike.cda)")
	fs.Float64Var(&b.crr, "crr", 0, "rolling resistance coefficient (default bike.crr)")
	fs.Float64Var(&b.ftp, "ftp", 0, "FTP in watts (default from profile)")
	fs.Float64Var(&b.weight, "weight", 0, "athlete weight in kg (default from profile)")
	fs.Float64Var(&b.bikeWeight, "bike-weight", 0, "bike weight in kg (default from profile)")
	return b
}

func (b *bikeFlags) request(fs *pflag.FlagSet) (service.BikeRequest, error) {
	req := service.BikeRequest{
		FTPPercentage:   b.pct,
		DistanceKm:      b.distance,
		ElevationGainM:  b.elevation,
		FTPWatts:        b.ftp,
		AthleteWeightKg: b.weight,
		BikeWeightKg:    b.bikeWeight,
	}
	if b.segments != "" {
		segments, err := service.ParseSegments(b.segments)
		if err != nil {
			return req, err
		}
		req.Segments = segments
	}
	// unset flags stay nil so the configured defaults apply
	if fs.Changed("wind") {
		req.WindSpeedMs = &b.wind
	}
	if fs.Changed("temp") {
		req.TemperatureC = &b.temp
	}
	if fs.Changed("cda") {
		req.CdA = &b.cda
	}
	if fs.Changed("crr") {
		req.Crr = &b.crr
	}
	return req, nil
}

func runBike(ctx context.Context, args []string) error {
	fs, configPath := newFlags("bike")
	bf := addBikeFlags(fs, "distance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := bf.request(fs)
	if err != nil {
		return err
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.planner.PredictBike(ctx, req)
	if err != nil {
		return err
	}
	printBike(res.Prediction)
	fmt.Printf("\nSaved as %s\n", res.ID)
	return nil
}

func printBike(p analysis.BikePrediction) {
	fmt.Printf("Bike: %s  (%.1f km at %.1f km/h, %.0fW = %.0f%% FTP, zone %d)\n",
		timefmt.FormatSeconds(p.TotalTimeSeconds), p.TotalDistanceKm, p.AverageSpeedKmh,
		p.TargetPowerWatts, p.FTPPercentage, analysis.BikeIntensityZone(p.FTPPercentage))
	if len(p.Segments) > 1 {
		for i, s := range p.Segments {
			note := ""
			if !s.Converged {
				note = "  (approx)"
			}
			fmt.Printf("  %2d  %6.1f km  %+5.1f%%  %5.1f km/h  %9s%s\n",
				i+1, s.Segment.DistanceKm, s.Segment.GradientPercent, s.SpeedKmh(), timefmt.FormatSeconds(s.TimeSeconds), note)
		}
	}
	printFactors(p.Factors)
}

func printFactors(factors []string) {
	for _, f := range factors {
		fmt.Printf("  - %s\n", f)
	}
}

func runTriathlon(ctx context.Context, args []string) error {
	fs, configPath := newFlags("tri")
	var req service.TriathlonRequest
	race := fs.String("race", "", "sprint, olympic, half or full; sets the swim distance")
	fs.Float64Var(&req.SwimDistanceM, "swim", 0, "swim distance in m")
	fs.Float64Var(&req.SwimBaselineDistanceM, "swim-base-distance", 0, "distance of a recent swim in m")
	fs.StringVar(&req.SwimBaselineTime, "swim-base-time", "", "time of that swim (default from CSS)")
	fs.StringVar(&req.Venue, "venue", "", "pool, lake or sea")
	fs.StringVar(&req.Swell, "swell", "", "low, moderate or high")
	fs.BoolVar(&req.Wetsuit, "wetsuit", false, "wetsuit swim")
	fs.Float64Var(&req.RunBaseDistanceKm, "run-base-distance", 0, "distance of a recent run in km")
	fs.StringVar(&req.RunBaseTime, "run-base-time", "", "time of that run; a bare number is minutes")
	fs.Float64Var(&req.RunDistanceKm, "run-distance", 0, "run distance in km (default for the race)")
	fs.StringVar(&req.T1, "t1", "", "swim to bike transition (default for the race)")
	fs.StringVar(&req.T2, "t2", "", "bike to run transition (default for the race)")
	bf := addBikeFlags(fs, "bike-distance")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *race != "" && req.SwimDistanceM == 0 {
		rt, err := analysis.ParseRaceType(*race)
		if err != nil {
			return err
		}
		dist, err := analysis.RaceDistancesFor(rt)
		if err != nil {
			return err
		}
		req.SwimDistanceM = dist.SwimMeters
	}
	bike, err := bf.request(fs)
	if err != nil {
		return err
	}
	req.Bike = bike

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.planner.PredictTriathlon(ctx, req)
	if err != nil {
		return err
	}
	p := res.Prediction
	fmt.Printf("%s triathlon: %s\n\n", p.RaceType, timefmt.FormatSeconds(p.TotalTimeSeconds))
	fmt.Printf("Swim  %9s  (%.0f m)\n", timefmt.FormatSeconds(p.Swim.TimeSeconds), p.Distances.SwimMeters)
	printFactors(p.Swim.Factors)
	fmt.Printf("T1    %9s\n", timefmt.FormatSeconds(p.T1Seconds))
	fmt.Printf("Bike  %9s  (%.1f km, zone %d)\n", timefmt.FormatSeconds(p.Bike.TimeSeconds), p.Distances.BikeKm, p.BikeZone)
	printFactors(p.Bike.Factors)
	fmt.Printf("T2    %9s\n", timefmt.FormatSeconds(p.T2Seconds))
	fmt.Printf("Run   %9s  (%.1f km)\n", timefmt.FormatSeconds(p.Run.TimeSeconds), p.Distances.RunKm)
	printFactors(p.Run.Factors)
	fmt.Printf("\nSaved as %s\n", res.ID)
	return nil
}

func runFieldTest(ctx context.Context, args []string) error {
	fs, configPath := newFlags("test")
	kind := fs.String("kind", "", "ftp_20min, ftp_60min, swim_css, run_threshold, run_performance or heart_rate")
	watts := fs.Float64("watts", 0, "average power, for FTP tests")
	pace := fs.String("pace", "", "pace, per 100m for swim_css or per km for run_threshold")
	duration := fs.String("time", "", "finish time, for run_performance")
	distance := fs.Float64("distance", 0, "distance in km, for run_performance")
	bpm := fs.Float64("bpm", 0, "maximum heart rate, for heart_rate")
	date := fs.String("date", "", "test date as YYYY-MM-DD (default now)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := service.FieldTestInput{Kind: store.FieldTestKind(*kind), Source: service.SourceFieldTest}
	var err error
	switch in.Kind {
	case store.KindFTP20Min:
		in.Value, in.DurationSeconds = *watts, 20*60
	case store.KindFTP60Min:
		in.Value, in.DurationSeconds = *watts, 60*60
	case store.KindSwimCSS, store.KindRunThreshold:
		in.Value, err = service.ParsePace(*pace)
	case store.KindRunPerformance:
		in.Value, err = service.ParseLegDuration(*duration)
		in.DistanceMeters = *distance * service.MetersPerKm
		in.DurationSeconds = in.Value
	case store.KindHeartRate:
		in.Value = *bpm
	}
	if err != nil {
		return err
	}
	if *date != "" {
		in.TestedAt, err = time.Parse("2006-01-02", *date)
		if err != nil {
			return &analysis.ValidationError{Field: "date", Reason: fmt.Sprintf("want YYYY-MM-DD, got %q", *date)}
		}
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	ft, err := e.planner.RecordFieldTest(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %s test %s (%v)\n", ft.Kind, ft.ID, ft.Value)
	prof, err := e.planner.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Profile: FTP %.0fW, CSS %s, threshold %s, max HR %.0f\n",
		prof.FTPWatts,
		timefmt.FormatPace(prof.SwimCSSSeconds, analysis.SwimPaceUnit),
		timefmt.FormatPace(prof.RunThresholdSeconds, analysis.RunPaceUnit),
		prof.MaxHR)
	return nil
}

func runImportFIT(ctx context.Context, args []string) error {
	fs, configPath := newFlags("import-fit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("import-fit needs at least one .fit file")
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	for _, path := range fs.Args() {
		res, err := e.planner.ImportFIT(ctx, path)
		if errors.Is(err, service.ErrNoFTPEffort) {
			fmt.Printf("%s: no 20 minute power effort, skipped\n", path)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		s := res.Summary
		fmt.Printf("%s: %s ride on %s, %s, %s\n", path, s.Sport, s.StartTime.Format("Jan 02 2006"),
			timefmt.Format(s.DurationSeconds), humanize.CommafWithDigits(s.DistanceMeters/1000, 1)+" km")
		for _, t := range res.Tests {
			fmt.Printf("  recorded %s: %.0fW\n", t.Kind, t.Value)
		}
	}
	return nil
}

func stravaOAuth(cfg *config.Config) auth.Config {
	return auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
	}
}

func runAuth(ctx context.Context, args []string) error {
	fs, configPath := newFlags("auth")
	clientID := fs.String("client-id", "", "Strava API client id, saved to the config")
	clientSecret := fs.String("client-secret", "", "Strava API client secret, saved to the config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	if *clientID != "" || *clientSecret != "" {
		if err := saveCredentials(e.cfg, *configPath, *clientID, *clientSecret); err != nil {
			return err
		}
	}
	if err := requireStrava(e.cfg); err != nil {
		return err
	}

	result, err := auth.Authenticate(ctx, auth.NewOAuthConfig(stravaOAuth(e.cfg)), os.Stdout)
	if err != nil {
		return fmt.Errorf("authentication: %w", err)
	}
	if err := e.db.SaveAuth(ctx, result.StoreAuth()); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}
	fmt.Printf("\nSuccessfully authenticated as athlete %d!\n", result.AthleteID)
	return nil
}

// saveCredentials stores non-empty Strava credentials in the config file
func saveCredentials(cfg *config.Config, path, clientID, clientSecret string) error {
	if clientID != "" {
		cfg.Strava.ClientID = clientID
	}
	if clientSecret != "" {
		cfg.Strava.ClientSecret = clientSecret
	}
	if path != "" {
		return config.SaveTo(path, cfg)
	}
	return config.Save(cfg)
}

// requireStrava writes an example config on first use so there is a file
// to put the credentials in
func requireStrava(cfg *config.Config) error {
	err := cfg.RequireStrava()
	if err == nil {
		return nil
	}
	if cerr := config.CreateExample(); cerr != nil {
		return fmt.Errorf("creating example config: %w", cerr)
	}
	configDir, _ := config.GetConfigDir()
	return fmt.Errorf("%w\nedit %s/config.json", err, configDir)
}

func runSync(ctx context.Context, args []string) error {
	fs, configPath := newFlags("sync")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := requireStrava(e.cfg); err != nil {
		return err
	}
	ts, err := auth.NewStoredTokenSource(ctx, auth.NewOAuthConfig(stravaOAuth(e.cfg)), e.db)
	if errors.Is(err, store.ErrNoAuth) {
		return errors.New("not connected to Strava, run 'racecalc auth' first")
	}
	if errors.Is(err, auth.ErrScopeMissing) {
		return fmt.Errorf("%w, run 'racecalc auth' again and keep the profile permission ticked", err)
	}
	if err != nil {
		return err
	}

	svc := service.NewSyncService(strava.NewClient(ts.Client()), e.db, e.logger.Logger)
	progress := make(chan service.SyncProgress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			fmt.Printf("\r%-10s %d", p.Phase, p.Completed)
		}
		fmt.Println()
	}()

	res, err := svc.SyncAll(ctx, progress)
	<-done
	if err != nil {
		return err
	}

	fmt.Printf("Synced %s: %d activities, %d qualifying runs\n", res.AthleteName, res.ActivitiesFetched, res.RunsConsidered)
	if res.ProfileUpdated {
		fmt.Println("Profile FTP/weight updated from Strava")
	}
	if res.BestRun != nil && res.BestRun.DistanceMeters != nil {
		fmt.Printf("New run baseline: %.1f km in %s (%s)\n", *res.BestRun.DistanceMeters/1000,
			timefmt.FormatSeconds(res.BestRun.Value), humanize.Time(res.BestRun.TestedAt))
	}
	short, daily := svc.RateLimitStatus()
	fmt.Printf("Strava requests left: %d (15 min), %d (day)\n", short, daily)
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs, configPath := newFlags("history")
	kind := fs.String("kind", "", "bike or triathlon (default both)")
	limit := fs.Int("limit", service.DefaultHistoryLimit, "number of predictions")
	asJSON := fs.Bool("json", false, "print the full predictions as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kind != "" && *kind != store.PredictionBike && *kind != store.PredictionTriathlon {
		return &analysis.ValidationError{Field: "kind", Reason: fmt.Sprintf("must be bike or triathlon, got %q", *kind)}
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	preds, err := e.planner.History(ctx, *kind, *limit)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(preds)
	}
	if len(preds) == 0 {
		fmt.Println("No predictions saved yet.")
		return nil
	}
	for _, p := range preds {
		race := p.RaceType
		if race == "" {
			race = "-"
		}
		fmt.Printf("%-36s  %-16s  %-9s  %-7s  %s\n", p.ID, humanize.Time(p.ComputedAt), p.Kind, race, timefmt.FormatSeconds(p.TotalSeconds))
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs, configPath := newFlags("serve")
	port := fs.IntP("port", "p", 0, "listen port (default server.port)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	if *port == 0 {
		*port = e.cfg.Server.Port
	}
	e.logger.Printf("listening on :%d", *port)
	return api.Serve(ctx, api.New(e.planner, e.logger.Logger), *port)
}
