// Package main is a demo and inspection tool for the compdb persistence
// engine.
//
// Without arguments it runs a small simulation: a handful of objects
// holding Player and Score attribute sets, mutated at a bounded rate, with
// a synchronization cycle on a fixed interval. Restarting the binary picks
// the simulation back up from the store. With -dump it prints the decoded
// contents of every partition instead.
//
// Configuration is read from CLI flags with a YAML config file as
// fallback.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/maruel/compdb"
	"github.com/maruel/compdb/kv"
	"github.com/maruel/compdb/world"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Player names an object in the demo simulation.
type Player struct {
	Name string `json:"name"`
}

// Score tracks a player's points.
type Score struct {
	Points int `json:"points"`
}

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "compdb: %v\n", err)
		os.Exit(1)
	}
}

// config mirrors the flags that can be set from a YAML file. Flags set
// explicitly on the command line win.
type config struct {
	Database string        `yaml:"database"`
	Interval time.Duration `yaml:"interval"`
	LogLevel string        `yaml:"log_level"`
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	dbPath := flag.String("db", compdb.DefaultPath, "Store file location")
	cfgPath := flag.String("config", "", "YAML config file (database, interval, log_level)")
	interval := flag.Duration("interval", time.Second, "Synchronization cycle interval")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dump := flag.Bool("dump", false, "Print the store contents and exit")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	if *cfgPath != "" {
		cfg, err := loadConfig(*cfgPath)
		if err != nil {
			return err
		}
		set := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) {
			set[f.Name] = true
		})
		if !set["db"] && cfg.Database != "" {
			*dbPath = cfg.Database
		}
		if !set["interval"] && cfg.Interval != 0 {
			*interval = cfg.Interval
		}
		if !set["log-level"] && cfg.LogLevel != "" {
			*logLevel = cfg.LogLevel
		}
	}

	ll := &slog.LevelVar{}
	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	if *dump {
		return dumpStore(*dbPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	if err := watchExecutable(ctx, stop); err != nil {
		slog.Warn("Failed to watch executable", "err", err)
	}
	return run(ctx, *dbPath, *interval)
}

func loadConfig(path string) (*config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := &config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func run(ctx context.Context, dbPath string, interval time.Duration) error {
	w := world.New()
	e, err := compdb.Open(w, compdb.Options{Path: dbPath})
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			slog.Error("Failed to close store", "err", err)
		}
	}()
	if err := compdb.Register[Player](e, "player"); err != nil {
		return err
	}
	if err := compdb.Register[Score](e, "score"); err != nil {
		return err
	}
	if err := e.Load(ctx); err != nil {
		return err
	}

	var players []world.ObjectID
	names := map[world.ObjectID]Player{}
	for id, p := range world.All[Player](w) {
		players = append(players, id)
		names[id] = p
	}
	for _, id := range players {
		score, _ := world.Get[Score](w, id)
		slog.Info("Loaded", "id", id, "name", names[id].Name, "points", score.Points)
	}
	if len(players) == 0 {
		for _, name := range []string{"alice", "bob", "carol"} {
			id := w.Create()
			_ = world.Set(w, id, Player{Name: name})
			_ = world.Set(w, id, Score{})
			slog.Info("Spawned", "id", id, "name", name)
			players = append(players, id)
		}
	}

	// Mutate scores at a bounded rate, concurrently with the sync cycles.
	go func() {
		lim := rate.NewLimiter(rate.Every(250*time.Millisecond), 1)
		for {
			if err := lim.Wait(ctx); err != nil {
				return
			}
			id := players[rand.IntN(len(players))]
			score, _ := world.Get[Score](w, id)
			score.Points++
			_ = world.Set(w, id, score)
			slog.Debug("Scored", "id", id, "points", score.Points)
		}
	}()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			// Flush pending changes before exiting.
			if err := e.Sync(context.Background()); err != nil {
				return err
			}
			slog.Info("Shutting down")
			return ctx.Err()
		case <-t.C:
			if err := e.Sync(ctx); err != nil {
				return err
			}
		}
	}
}

// dumpStore prints every record of every partition, with decoded keys.
func dumpStore(dbPath string) error {
	store, err := kv.OpenBolt(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()
	names, err := store.Partitions()
	if err != nil {
		return err
	}
	for _, name := range names {
		part, err := store.Partition(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s:\n", name)
		err = part.ForEach(func(key, value []byte) error {
			if id, ok := compdb.DecodeKey(key); ok {
				fmt.Printf("  %d: %s\n", id, value)
			} else {
				fmt.Printf("  %x (malformed key): %s\n", key, value)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// watchExecutable watches the current executable for modifications and
// calls stop to trigger graceful shutdown when detected. This enables
// seamless restarts during development.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("compdb %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
