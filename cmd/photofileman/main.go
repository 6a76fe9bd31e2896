package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Destination tree layouts.
const (
	LayoutNested = "nested" // YYYY/MM[/DD][/place]
	LayoutFlat   = "flat"   // single YYYY-MM[-DD][-place] directory
	LayoutMirror = "mirror" // reuse the source file's parent directory name
)

// args holds the command-line arguments
var args struct {
	Command          string `arg:"positional,required" help:"copy, move, convert, rename or touch"`
	Source           string `arg:"positional" help:"source of files to operate on"`
	Destination      string `arg:"positional" help:"where to copy or move files to"`
	ConfigFile       string `arg:"--config" help:"Path to config file"`
	DryRun           bool   `arg:"-d,--dry-run" help:"Do not actually modify files"`
	Force            bool   `arg:"-f,--force" help:"Force overwriting existing output"`
	ScanDirs         bool   `arg:"-S,--scan-dirs" help:"Scan destination directories for location information"`
	Convert          bool   `arg:"-c,--convert" help:"Convert HEIF to JPEG, in addition to copy or move"`
	Rename           bool   `arg:"-r,--rename" help:"Prefix file names with the capture timestamp, in addition to copy or move"`
	ImageDescription bool   `arg:"-i,--image-description" help:"Name files after the ImageDescription or XPTitle tag if defined"`
	Touch            bool   `arg:"-t,--touch" help:"Set file dates to the earliest date in image metadata"`
	Month            bool   `arg:"-m,--month" help:"Use month directories (YYYY/MM) rather than day (YYYY/MM/DD)"`
	GeoGroup         bool   `arg:"-g,--geo-group" help:"Group files into town-name subdirectories"`
	Since            string `arg:"-s,--since" help:"YYYY-MM-DD format date that all pictures must come after"`
	Layout           string `arg:"--layout" help:"Destination layout: nested, flat or mirror" default:"nested"`
	PhoneSafe        bool   `arg:"--phone-safe" help:"Restrict generated file names to letters, digits and underscore"`
	NightCutoff      int    `arg:"--night-cutoff" help:"Hour of day below which files bucket into the previous day (0 disables)"`
	KeepGoing        bool   `arg:"-k,--keep-going" help:"Continue with the next file after a per-file error"`
	Debug            bool   `arg:"-D,--debug" help:"Enable debug logging"`
}

// config holds the application configuration
type config struct {
	Command          string `yaml:"-"`
	Source           string `yaml:"source_directory"`
	Destination      string `yaml:"destination_directory"`
	ConfigFile       string `yaml:"-"`
	DryRun           bool   `yaml:"dry_run"`
	Force            bool   `yaml:"force"`
	ScanDirs         bool   `yaml:"scan_dirs"`
	Convert          bool   `yaml:"convert"`
	Rename           bool   `yaml:"rename"`
	ImageDescription bool   `yaml:"image_description"`
	Touch            bool   `yaml:"touch"`
	Month            bool   `yaml:"month"`
	GeoGroup         bool   `yaml:"geo_group"`
	Since            string `yaml:"since"`
	Layout           string `yaml:"layout"`
	PhoneSafe        bool   `yaml:"phone_safe"`
	NightCutoff      int    `yaml:"night_cutoff"`
	KeepGoing        bool   `yaml:"keep_going"`
	Debug            bool   `yaml:"debug"`
}

// setDefaults initializes the config with default values
func setDefaults(cfg *config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %v", err)
	}

	cfg.Source = defaultSourcePath()
	cfg.Destination = filepath.Join(homeDir, "Pictures")
	cfg.ConfigFile = filepath.Join(homeDir, ".photofilemanrc")
	cfg.Layout = LayoutNested
	return nil
}

// defaultSourcePath probes mounted camera devices, falling back to the
// working directory. gvfs exposes iOS devices as gphoto2 mounts and
// Android devices as mtp mounts.
func defaultSourcePath() string {
	base := filepath.Join("/run/user", fmt.Sprintf("%d", os.Geteuid()), "gvfs")
	if matches, err := filepath.Glob(filepath.Join(base, "gphoto*")); err == nil && len(matches) > 0 {
		return filepath.Join(matches[0], "DCIM")
	}
	if matches, err := filepath.Glob(filepath.Join(base, "mtp*")); err == nil && len(matches) > 0 {
		return filepath.Join(matches[0], "Internal shared storage", "DCIM", "Camera")
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// parseConfigFile reads and parses the YAML configuration file
func parseConfigFile(cfg *config) error {
	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file doesn't exist, just return without an error
			return nil
		}
		return fmt.Errorf("failed to read config file: %v", err)
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config file: %v", err)
	}

	return nil
}

// validateConfig checks if the configuration is valid
func validateConfig(cfg *config) error {
	switch cfg.Command {
	case "copy", "move", "convert", "rename", "touch":
	default:
		return fmt.Errorf("unknown command: %q (must be copy, move, convert, rename or touch)", cfg.Command)
	}

	if cfg.Source == "" {
		return fmt.Errorf("source directory is not specified")
	}

	if _, err := os.Stat(cfg.Source); os.IsNotExist(err) {
		return fmt.Errorf("source directory does not exist: %s", cfg.Source)
	}

	// convert, rename and touch operate in place, so only copy and move
	// need a usable destination.
	if cfg.Command == "copy" || cfg.Command == "move" {
		if cfg.Destination == "" {
			return fmt.Errorf("destination directory is not specified")
		}
		destParent := filepath.Dir(cfg.Destination)
		if _, err := os.Stat(destParent); os.IsNotExist(err) {
			return fmt.Errorf("destination parent directory does not exist: %s", destParent)
		}
	}

	switch cfg.Layout {
	case LayoutNested, LayoutFlat, LayoutMirror:
	default:
		return fmt.Errorf("invalid layout: %q (must be nested, flat or mirror)", cfg.Layout)
	}

	if cfg.NightCutoff < 0 || cfg.NightCutoff > 23 {
		return fmt.Errorf("night cutoff hour %d out of range [0, 23]", cfg.NightCutoff)
	}

	if cfg.Since != "" && parseSinceDate(cfg.Since).IsZero() {
		return fmt.Errorf("cannot parse since date: %q", cfg.Since)
	}

	return nil
}

// wasFlagProvided checks if a CLI flag was explicitly provided
func wasFlagProvided(flagName string) bool {
	for _, a := range os.Args[1:] {
		if a == flagName || strings.HasPrefix(a, flagName+"=") {
			return true
		}
	}
	return false
}

func run() error {
	// Create an instance of the config struct
	cfg := config{}

	// Set default values first
	if err := setDefaults(&cfg); err != nil {
		return fmt.Errorf("setting defaults: %w", err)
	}

	// Parse command-line arguments
	arg.MustParse(&args)

	// Apply config file path from command-line argument if provided
	if args.ConfigFile != "" {
		cfg.ConfigFile = args.ConfigFile
	}

	// Parse configuration file
	if err := parseConfigFile(&cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	// Override with command-line arguments
	cfg.Command = args.Command
	if args.Source != "" {
		cfg.Source = args.Source
	}
	if args.Destination != "" {
		cfg.Destination = args.Destination
	}
	if wasFlagProvided("-d") || wasFlagProvided("--dry-run") {
		cfg.DryRun = args.DryRun
	}
	if wasFlagProvided("-f") || wasFlagProvided("--force") {
		cfg.Force = args.Force
	}
	if wasFlagProvided("-S") || wasFlagProvided("--scan-dirs") {
		cfg.ScanDirs = args.ScanDirs
	}
	if wasFlagProvided("-c") || wasFlagProvided("--convert") {
		cfg.Convert = args.Convert
	}
	if wasFlagProvided("-r") || wasFlagProvided("--rename") {
		cfg.Rename = args.Rename
	}
	if wasFlagProvided("-i") || wasFlagProvided("--image-description") {
		cfg.ImageDescription = args.ImageDescription
	}
	if wasFlagProvided("-t") || wasFlagProvided("--touch") {
		cfg.Touch = args.Touch
	}
	if wasFlagProvided("-m") || wasFlagProvided("--month") {
		cfg.Month = args.Month
	}
	if wasFlagProvided("-g") || wasFlagProvided("--geo-group") {
		cfg.GeoGroup = args.GeoGroup
	}
	if wasFlagProvided("-s") || wasFlagProvided("--since") {
		cfg.Since = args.Since
	}
	if wasFlagProvided("--layout") {
		cfg.Layout = args.Layout
	}
	if wasFlagProvided("--phone-safe") {
		cfg.PhoneSafe = args.PhoneSafe
	}
	if wasFlagProvided("--night-cutoff") {
		cfg.NightCutoff = args.NightCutoff
	}
	if wasFlagProvided("-k") || wasFlagProvided("--keep-going") {
		cfg.KeepGoing = args.KeepGoing
	}
	if wasFlagProvided("-D") || wasFlagProvided("--debug") {
		cfg.Debug = args.Debug
	}

	setupLogging(cfg.Debug)

	// Validate the configuration
	if err := validateConfig(&cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := newApplication(cfg)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}

	if err := app.processAll(); err != nil {
		return fmt.Errorf("processing files: %w", err)
	}

	return nil
}

func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
