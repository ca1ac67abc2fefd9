package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"mapposter/internal/cache"
	"mapposter/internal/config"
	"mapposter/internal/export"
	"mapposter/internal/geo"
	"mapposter/internal/location"
	"mapposter/internal/logger"
	"mapposter/internal/map_data"
	"mapposter/internal/poster"
	"mapposter/internal/poster_renderer"
	"mapposter/internal/theme"
)

type options struct {
	city, country                    string
	latitude, longitude              float64
	countryLabel                     string
	displayCity, displayCountry      string
	theme                            string
	allThemes, listThemes            bool
	distance                         float64
	width, height                    float64
	format                           string
	fontBold, fontRegular, fontLight string
}

func main() {
	fs := pflag.NewFlagSet("poster", pflag.ContinueOnError)
	opts := registerFlags(fs)
	config.RegisterFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if opts.listThemes {
		if err := listThemes(os.Stdout, cfg.ThemesDir, log); err != nil {
			log.Fatal("Failed to list themes", zap.Error(err))
		}
		return
	}

	if err := run(opts, fs, cfg, log); err != nil {
		log.Error("Poster generation failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func registerFlags(fs *pflag.FlagSet) *options {
	o := &options{}
	fs.StringVarP(&o.city, "city", "c", "", "city name")
	fs.StringVarP(&o.country, "country", "C", "", "country name")
	fs.Float64Var(&o.latitude, "latitude", 0, "override the geocoded latitude")
	fs.Float64Var(&o.longitude, "longitude", 0, "override the geocoded longitude")
	fs.StringVar(&o.countryLabel, "country-label", "", "country text printed on the poster")
	fs.StringVar(&o.displayCity, "display-city", "", "city text printed on the poster")
	fs.StringVar(&o.displayCountry, "display-country", "", "country text printed on the poster, wins over --country-label")
	fs.StringVarP(&o.theme, "theme", "t", theme.DefaultName, "theme name")
	fs.BoolVar(&o.allThemes, "all-themes", false, "render one poster per available theme")
	fs.BoolVar(&o.listThemes, "list-themes", false, "list available themes and exit")
	fs.Float64VarP(&o.distance, "distance", "d", 18000, "map radius in meters")
	fs.Float64VarP(&o.width, "width", "W", 12, "poster width in inches")
	fs.Float64VarP(&o.height, "height", "H", 16, "poster height in inches")
	fs.StringVarP(&o.format, "format", "f", "png", "output format: png, svg or pdf")
	fs.StringVar(&o.fontBold, "font-bold", "", "bold font file")
	fs.StringVar(&o.fontRegular, "font-regular", "", "regular font file")
	fs.StringVar(&o.fontLight, "font-light", "", "light font file")
	return o
}

func run(opts *options, fs *pflag.FlagSet, cfg *config.Config, log *zap.Logger) error {
	req := poster.Request{
		City:           opts.city,
		Country:        opts.country,
		Radius:         opts.distance,
		Width:          opts.width,
		Height:         opts.height,
		Format:         opts.format,
		Theme:          opts.theme,
		DisplayCity:    opts.displayCity,
		DisplayCountry: opts.displayCountry,
		CountryLabel:   opts.countryLabel,
	}

	latSet, lonSet := fs.Changed("latitude"), fs.Changed("longitude")
	if latSet != lonSet {
		return errors.New("--latitude and --longitude must be given together")
	}
	if latSet {
		req.Point = &geo.Coordinate{Lat: opts.latitude, Lon: opts.longitude}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cache.NewCache(cache.Options{
		Type:          cfg.CacheType,
		Dir:           cfg.CacheDir,
		MemoryEntries: cfg.CacheMemoryEntries,
		Redis: cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "mapposter:",
			Timeout:  cfg.HTTPTimeout,
		},
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	shutdownVips := export.StartVips(export.VipsOptions{
		MaxCacheMB:  cfg.VipsMaxCacheMB,
		Concurrency: cfg.VipsConcurrency,
	}, log)
	defer shutdownVips()

	fonts, err := poster_renderer.LoadFonts(poster_renderer.FontPaths{
		Bold:    opts.fontBold,
		Regular: opts.fontRegular,
		Light:   opts.fontLight,
	}, log)
	if err != nil {
		return err
	}

	geocoder := location.NewNominatim(cfg.NominatimURL, cfg.UserAgent, cfg.HTTPTimeout, log)
	resolver := location.NewResolver(geocoder, store, cfg.GeocodeDelay, log)

	source := map_data.NewOSMAPISource(map_data.OSMAPIOptions{
		BaseURL:        cfg.OSMAPIURL,
		UserAgent:      cfg.UserAgent,
		Timeout:        cfg.HTTPTimeout,
		MaxTileDegrees: cfg.MaxTileDegrees,
		Progress:       os.Stderr,
	}, log)
	fetcher := map_data.NewFetcher(source, store, map_data.FetcherOptions{
		NetworkDelay: cfg.NetworkDelay,
		FeatureDelay: cfg.FeatureDelay,
	}, log)

	gen := poster.NewGenerator(poster.Config{
		PostersDir: cfg.PostersDir,
		ThemesDir:  cfg.ThemesDir,
		Fonts:      fonts,
		Progress:   os.Stderr,
	}, resolver, fetcher, export.New(log), log)

	if !opts.allThemes {
		res, err := gen.Generate(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(res.Path)
		return nil
	}

	names, err := theme.Available(cfg.ThemesDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no themes found in %s", cfg.ThemesDir)
	}
	results, err := gen.GenerateAll(ctx, req, names)
	for _, res := range results {
		fmt.Println(res.Path)
	}
	return err
}

func listThemes(w io.Writer, dir string, log *zap.Logger) error {
	names, err := theme.Available(dir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(w, "no themes found in %s\n", dir)
		return nil
	}
	for _, name := range names {
		th := theme.Load(dir, name, log)
		fmt.Fprintf(w, "%-14s %s\n", name, th.Description)
	}
	return nil
}
