// daceq - USB parametric EQ control for DSP audio devices
//
// daceq discovers supported USB-HID DAC/DSP devices, reads and writes
// their parametric EQ state, and keeps a local library of named
// profiles so a tune can be moved between devices.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/graywave/daceq/internal/devices"
	"github.com/graywave/daceq/internal/devices/moondrop"
	"github.com/graywave/daceq/internal/devices/qudelix"
	"github.com/graywave/daceq/internal/devices/tanchjim"
	"github.com/graywave/daceq/internal/hidio"
	"github.com/graywave/daceq/internal/infrastructure/config"
	"github.com/graywave/daceq/internal/infrastructure/database"
	"github.com/graywave/daceq/internal/infrastructure/logging"
	"github.com/graywave/daceq/internal/peq"
	"github.com/graywave/daceq/internal/profilestore"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

const usageText = `Usage: daceq [flags] <command> [args]

Commands:
  list                      list supported devices currently attached
  info                      show the selected device's capabilities
  read [-o file]            read the device PEQ (JSON to stdout or file)
  write <profile.json>      write a profile file to the device
  pregain <dB>              set pregain only
  preset load <slot>        activate an on-device preset slot
  preset save <slot>        save current EQ into a custom preset slot
  preset name <slot> [name] show or assign a custom preset's name
  mode <mode>               switch the device EQ mode
  store save <name>         read the device and store the profile
  store load <name>         write a stored profile to the device
  store list                list stored profiles
  store delete <name>       remove a stored profile

Flags:
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("daceq", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usageText)
		fs.PrintDefaults()
	}

	var (
		configPath = fs.String("config", "", "config file path (default: built-in defaults, or $DACEQ_CONFIG)")
		deviceID   = fs.Int("device", devices.AutoSelect, "device ID from 'daceq list' (default: sole attached device)")
		group      = fs.String("group", "", "EQ group to target, for devices with several")
		logLevel   = fs.String("log-level", "", "override configured log level")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("starting", "version", version, "commit", commit)

	app := &app{
		cfg:      cfg,
		log:      log,
		deviceID: *deviceID,
		group:    *group,
	}

	command := fs.Arg(0)
	rest := fs.Args()[1:]

	switch command {
	case "list":
		return app.list()
	case "info":
		return app.info()
	case "read":
		return app.read(rest)
	case "write":
		return app.write(rest)
	case "pregain":
		return app.pregain(rest)
	case "preset":
		return app.preset(rest)
	case "mode":
		return app.mode(rest)
	case "store":
		return app.store(ctx, rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// loadConfig loads configuration from the given path, $DACEQ_CONFIG, or
// built-in defaults, in that order of preference.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("DACEQ_CONFIG")
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// app carries the resolved configuration and selection flags through the
// command implementations.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	deviceID int
	group    string
}

// registry builds the handler registry over the hidapi transport.
// Registration order is match precedence; the modern field protocol
// variant must precede the legacy one because their keyword sets overlap.
func (a *app) registry() (*devices.Registry, *hidio.HIDAPI, error) {
	vendors := a.cfg.Devices
	if !vendors.Tanchjim.Enabled && !vendors.Qudelix.Enabled && !vendors.Moondrop.Enabled {
		return nil, nil, errors.New("all vendor handlers are disabled in config")
	}

	transport, err := hidio.NewHIDAPI()
	if err != nil {
		return nil, nil, fmt.Errorf("initialising HID transport: %w", err)
	}

	log := a.log.With("component", "devices")
	var factories []devices.Factory
	if a.cfg.Devices.Tanchjim.Enabled {
		opts := []tanchjim.Option{tanchjim.WithLogger(log)}
		if d := a.cfg.WriteDelay(); d > 0 {
			opts = append(opts, tanchjim.WithWriteDelay(d))
		}
		factories = append(factories,
			func() devices.Handler { return tanchjim.NewModern(transport, opts...) },
			func() devices.Handler { return tanchjim.NewLegacy(transport, opts...) },
		)
	}
	if a.cfg.Devices.Qudelix.Enabled {
		factories = append(factories,
			func() devices.Handler { return qudelix.New(transport, qudelix.WithLogger(log)) },
		)
	}
	if a.cfg.Devices.Moondrop.Enabled {
		factories = append(factories,
			func() devices.Handler { return moondrop.New(transport, moondrop.WithLogger(log)) },
		)
	}
	reg := devices.NewRegistry(transport, factories...)
	reg.SetLogger(log)
	return reg, transport, nil
}

// withHandler discovers devices, connects the selected one, applies the
// group selection if requested, and runs fn with the connected handler.
func (a *app) withHandler(fn func(devices.Handler) error) error {
	reg, transport, err := a.registry()
	if err != nil {
		return err
	}
	defer transport.Close() //nolint:errcheck // process exit follows

	if _, err := reg.Discover(); err != nil {
		return err
	}

	h, err := reg.Connect(a.deviceID)
	if err != nil {
		return err
	}
	defer h.Disconnect()

	if a.group != "" {
		gs, ok := h.(devices.GroupSelector)
		if !ok || !h.Features().Has(devices.FeatureGroups) {
			return fmt.Errorf("%s does not support EQ groups", h.Name())
		}
		if err := gs.SelectGroup(a.group); err != nil {
			return err
		}
	}

	return fn(h)
}

func (a *app) list() error {
	reg, transport, err := a.registry()
	if err != nil {
		return err
	}
	defer transport.Close() //nolint:errcheck // process exit follows

	found, err := reg.Discover()
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("No supported devices found.")
		return nil
	}

	for _, d := range found {
		fmt.Printf("%d: %s [%s] %04X:%04X %s\n",
			d.ID, d.Info.Product, d.Handler,
			d.Info.VendorID, d.Info.ProductID, d.Info.Path)
	}
	return nil
}

func (a *app) info() error {
	return a.withHandler(func(h devices.Handler) error {
		caps := h.Capabilities()
		fmt.Printf("Handler:    %s\n", h.Name())
		fmt.Printf("Filters:    up to %d\n", caps.MaxFilters)
		fmt.Printf("Gain:       %s dB\n", caps.GainRange)
		fmt.Printf("Pregain:    %s dB\n", caps.PregainRange)
		fmt.Printf("Frequency:  %s Hz\n", caps.FreqRange)
		fmt.Printf("Q:          %s\n", caps.QRange)
		fmt.Printf("Types:      %s\n", joinTypes(caps.SupportedTypes))
		fmt.Printf("Read/Write: %v/%v\n", caps.SupportsRead, caps.SupportsWrite)
		if features := featureNames(h.Features()); len(features) > 0 {
			fmt.Printf("Extras:     %s\n", strings.Join(features, ", "))
		}
		return nil
	})
}

func (a *app) read(args []string) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	output := fs.String("o", "", "write the profile to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.withHandler(func(h devices.Handler) error {
		p, err := h.ReadPEQ()
		if err != nil {
			return err
		}
		if *output != "" {
			return p.SaveFile(*output)
		}
		data, err := p.Encode()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	})
}

func (a *app) write(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: daceq write <profile.json>")
	}
	p, err := peq.LoadProfile(args[0])
	if err != nil {
		return err
	}

	return a.withHandler(func(h devices.Handler) error {
		if err := h.WritePEQ(p); err != nil {
			return err
		}
		fmt.Printf("Wrote %d filters (pregain %.1f dB) to %s.\n", len(p.Filters), p.Pregain, h.Name())
		return nil
	})
}

// pregain sets pregain alone. Handlers without a direct pregain
// operation get a read-modify-write of the whole profile instead.
func (a *app) pregain(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: daceq pregain <dB>")
	}
	db, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid pregain %q: %w", args[0], err)
	}

	return a.withHandler(func(h devices.Handler) error {
		if pw, ok := h.(devices.PregainWriter); ok && h.Features().Has(devices.FeatureDirectPregain) {
			return pw.WritePregain(db)
		}
		p, err := h.ReadPEQ()
		if err != nil {
			return err
		}
		p.Pregain = db
		return h.WritePEQ(p)
	})
}

func (a *app) preset(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: daceq preset load|save|name <slot> [name]")
	}
	action := args[0]
	slot, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid preset slot %q: %w", args[1], err)
	}

	return a.withHandler(func(h devices.Handler) error {
		pm, ok := h.(devices.PresetManager)
		if !ok || !h.Features().Has(devices.FeaturePresets) {
			return fmt.Errorf("%s does not support on-device presets", h.Name())
		}

		switch action {
		case "load":
			return pm.LoadPreset(slot)
		case "save":
			return pm.SavePreset(slot)
		case "name":
			if !h.Features().Has(devices.FeaturePresetNames) {
				return fmt.Errorf("%s does not support preset names", h.Name())
			}
			if len(args) >= 3 {
				return pm.SetPresetName(slot, strings.Join(args[2:], " "))
			}
			name, err := pm.PresetName(slot)
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		default:
			return fmt.Errorf("unknown preset action %q", action)
		}
	})
}

func (a *app) mode(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: daceq mode <mode>")
	}

	return a.withHandler(func(h devices.Handler) error {
		ms, ok := h.(devices.ModeSelector)
		if !ok || !h.Features().Has(devices.FeatureEQModes) {
			return fmt.Errorf("%s does not support EQ modes", h.Name())
		}
		return ms.SetEQMode(args[0])
	})
}

func (a *app) store(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: daceq store save|load|list|delete [name]")
	}

	db, err := database.Open(a.cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			a.log.Error("error closing database", "error", closeErr)
		}
	}()

	repo, err := profilestore.NewSQLiteRepository(ctx, db.DB)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		saved, err := repo.List(ctx)
		if err != nil {
			return err
		}
		if len(saved) == 0 {
			fmt.Println("No stored profiles.")
			return nil
		}
		for _, sp := range saved {
			device := sp.Device
			if device == "" {
				device = "-"
			}
			fmt.Printf("%-20s %2d filters  pregain %5.1f dB  from %s\n",
				sp.Name, len(sp.Profile.Filters), sp.Profile.Pregain, device)
		}
		return nil

	case "delete":
		if len(args) != 2 {
			return errors.New("usage: daceq store delete <name>")
		}
		return repo.Delete(ctx, args[1])

	case "save":
		if len(args) != 2 {
			return errors.New("usage: daceq store save <name>")
		}
		return a.withHandler(func(h devices.Handler) error {
			p, err := h.ReadPEQ()
			if err != nil {
				return err
			}
			if err := repo.Save(ctx, args[1], h.Name(), p); err != nil {
				return err
			}
			fmt.Printf("Stored %q (%d filters).\n", args[1], len(p.Filters))
			return nil
		})

	case "load":
		if len(args) != 2 {
			return errors.New("usage: daceq store load <name>")
		}
		sp, err := repo.Load(ctx, args[1])
		if err != nil {
			return err
		}
		return a.withHandler(func(h devices.Handler) error {
			if err := h.WritePEQ(sp.Profile); err != nil {
				return err
			}
			fmt.Printf("Wrote %q to %s.\n", sp.Name, h.Name())
			return nil
		})

	default:
		return fmt.Errorf("unknown store action %q", args[0])
	}
}

func joinTypes(types []peq.FilterType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// featureNames renders the optional capability flags for display.
func featureNames(f devices.Feature) []string {
	var names []string
	if f.Has(devices.FeatureDirectPregain) {
		names = append(names, "direct pregain")
	}
	if f.Has(devices.FeaturePresets) {
		names = append(names, "presets")
	}
	if f.Has(devices.FeaturePresetNames) {
		names = append(names, "preset names")
	}
	if f.Has(devices.FeatureEQModes) {
		names = append(names, "EQ modes")
	}
	if f.Has(devices.FeatureGroups) {
		names = append(names, "EQ groups")
	}
	return names
}
