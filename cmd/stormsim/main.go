// Command stormsim renders the hazard overlay engine in a terminal. It
// projects live feed deliveries, a fixture file, or a built-in demo
// scene onto a pannable, zoomable map drawn with truecolor cells.
//
// Keys: arrows pan, + and - zoom, space pauses, 1-4 toggle overlay
// kinds, q or Esc quits.
//
// Usage:
//
//	go run ./cmd/stormsim -demo
//	go run ./cmd/stormsim -fixture data/fixtures/gulf_demo.geojson
//	go run ./cmd/stormsim -center "Moore, OK" -zoom 12 -log sim.log
//
// Without -demo or -fixture the sim consumes the configured feed topic
// and follows it live.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/storm-overlay-engine/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/storm-overlay-engine/internal/adapter/http"
	"github.com/couchcryptid/storm-overlay-engine/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-overlay-engine/internal/config"
	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/observability"
	"github.com/couchcryptid/storm-overlay-engine/internal/overlay"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	centerFlag := flag.String("center", "", `initial view center: "lat,lon", or a place name when mapbox is enabled`)
	zoomFlag := flag.Float64("zoom", 8, "initial zoom in cells per degree of latitude")
	fixtureFlag := flag.String("fixture", "", "GeoJSON scene to load instead of consuming the feed")
	demoFlag := flag.Bool("demo", false, "run the built-in demo scene, no broker needed")
	logFlag := flag.String("log", "", "log file path; empty discards logs since the screen owns the terminal")
	flag.Parse()

	// .env keeps local runs in line with the deployed environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var logW io.Writer = io.Discard
	if *logFlag != "" {
		f, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logW = f
	}
	logger := observability.NewLoggerTo(cfg, logW)
	metrics := observability.NewMetrics()

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder mapbox.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	center, err := resolveCenter(*centerFlag, geocoder, cfg.MapboxTimeout)
	if err != nil {
		return err
	}
	if *zoomFlag < minZoom || *zoomFlag > maxZoom {
		return fmt.Errorf("-zoom %g outside [%g, %g]", *zoomFlag, minZoom, maxZoom)
	}

	presets := config.DefaultPresets()
	// WIND_PARTICLES sizes the ambient layer when no preset file is
	// given; a preset file owns all tuning once set.
	presets.Wind.Particles = cfg.WindParticles
	if cfg.PresetPath != "" {
		presets, err = config.LoadPresets(cfg.PresetPath)
		if err != nil {
			return fmt.Errorf("loading presets: %w", err)
		}
		logger.Info("presets loaded", "path", cfg.PresetPath)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.HideCursor()
	screen.Clear()

	sw, sh := screen.Size()
	cam := newCamera(center, *zoomFlag, cfg.FrameInterval)
	mapH := sh - statusRows
	if mapH < 1 {
		mapH = 1
	}
	cam.setSize(sw, mapH)

	view, err := viewport.NewAdapter(cam.proj)
	if err != nil {
		return err
	}

	h := newHost(screen, cam, view, geocoder, cfg.MapboxTimeout, logger)

	store, err := field.New(field.Config{InfluenceRadius: cfg.InfluenceRadiusM}, logger)
	if err != nil {
		return err
	}

	m, err := overlay.NewManager(overlay.ManagerConfig{
		Viewport: view,
		Surfaces: h,
		Store:    store,
		Tunings:  tuningsFrom(presets),
		Interval: cfg.FrameInterval,
		MaxDelta: cfg.MaxFrameDelta,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}
	if _, err := m.AttachWind(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scene source: fixture file, built-in demo, or the live feed.
	var sub *feed.Subscriber
	switch {
	case *fixtureFlag != "":
		u, err := loadFixture(*fixtureFlag)
		if err != nil {
			return err
		}
		if err := m.Apply(u); err != nil {
			return fmt.Errorf("applying fixture: %w", err)
		}
		logger.Info("fixture applied", "path", *fixtureFlag)
	case *demoFlag:
		if err := m.Apply(demoScene(center)); err != nil {
			return fmt.Errorf("applying demo scene: %w", err)
		}
		logger.Info("demo scene applied")
	default:
		sub = feed.NewSubscriber(cfg, m, clockwork.NewRealClock(), logger, metrics)
		go func() {
			if err := sub.Run(ctx); err != nil {
				logger.Error("feed subscriber error", "error", err)
			}
		}()
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, m, m, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// The UI loop owns this goroutine until quit or signal.
	h.run(ctx, m, cfg.FrameInterval)

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if sub != nil {
		if err := sub.Close(); err != nil {
			logger.Error("feed subscriber close error", "error", err)
		}
	}
	if err := m.Close(); err != nil {
		logger.Error("overlay manager close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func tuningsFrom(p config.Presets) overlay.Tunings {
	return overlay.Tunings{
		Wind:      tuning(p.Wind),
		Cyclone:   tuning(p.Cyclone),
		Flood:     tuning(p.Flood),
		Detection: tuning(p.Detection),
	}
}

func tuning(p config.Preset) overlay.Tuning {
	return overlay.Tuning{
		Particles:   p.Particles,
		MinAgeTicks: p.MinAgeTicks,
		MaxAgeTicks: p.MaxAgeTicks,
		SpeedFactor: p.SpeedFactor,
		FadeRetain:  p.FadeRetain,
	}
}

// resolveCenter turns the -center flag into coordinates: "lat,lon"
// parses directly, anything else is forward geocoded.
func resolveCenter(s string, geocoder mapbox.Geocoder, timeout time.Duration) (geo.Point, error) {
	if s == "" {
		// Gulf of Mexico, where the demo scenes live.
		return geo.Point{Lat: 28, Lon: -90}, nil
	}
	if p, err := parseLatLon(s); err == nil {
		return p, nil
	}
	if geocoder == nil {
		return geo.Point{}, fmt.Errorf("-center %q is not lat,lon and mapbox is disabled", s)
	}

	name, state := splitPlace(s)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	res, err := geocoder.ForwardGeocode(ctx, name, state)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocoding %q: %w", s, err)
	}
	if res.Lat == 0 && res.Lon == 0 {
		return geo.Point{}, fmt.Errorf("no geocoding match for %q", s)
	}
	return geo.Point{Lat: res.Lat, Lon: res.Lon}, nil
}
