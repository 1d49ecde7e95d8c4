package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/waterrocket/simulator/internal/config"
	"github.com/waterrocket/simulator/pkg/core"
)

// BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"
)

const appName = "waterrocket"

var errUsage = errors.New("usage: waterrocket <run|serve|version> [flags]")

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	command, rest := strings.ToLower(args[0]), args[1:]
	switch command {
	case "run":
		return runCommand(ctx, rest, out)
	case "serve":
		return serveCommand(ctx, rest, out)
	case "version":
		fmt.Fprintf(out, "%s %s (built %s)\n", appName, Version, BuildDate)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", command, errUsage)
	}
}

// newFlagSet returns a flag set carrying the flags every command shares.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", ".", "directory containing "+config.FileName)
	fs.String("log-level", "", "override logLevel (debug, info, warn, error)")
	return fs
}

// addLaunchFlags registers the per-stage inputs and the launch site name.
func addLaunchFlags(fs *pflag.FlagSet) {
	defaults := core.DefaultLaunchInput()
	for i, s := range defaults.Stages {
		n := i + 1
		fs.Int(fmt.Sprintf("stage%d-water", n), s.WaterML,
			fmt.Sprintf("stage %d water in mL [%d,%d]", n, core.MinWaterML, core.MaxWaterML[i]))
		fs.Float64(fmt.Sprintf("stage%d-pressure", n), s.PressureAtm,
			fmt.Sprintf("stage %d pressure in atm [%g,%g] in steps of %g", n, core.MinPressureAtm, core.MaxPressureAtm, core.PressureStep))
	}
	fs.String("site", "", "launch site name")
}

// loadConfig reads the config file named by --config and binds the flags
// over it. It returns the config file error, if any; the caller logs it and
// carries on with defaults.
func loadConfig(fs *pflag.FlagSet) error {
	dir, _ := fs.GetString("config")
	configErr := config.Load(dir)
	if configErr != nil {
		config.SetDefaults()
	}

	bindings := map[string]string{
		"log-level": "logLevel",
		"site":      "launchSite.name",
		"listen":    "http.listen",
		"api-key":   "http.apiKey",
	}
	for i := 1; i <= core.StageCount; i++ {
		bindings[fmt.Sprintf("stage%d-water", i)] = fmt.Sprintf("launch.stage%d.waterMl", i)
		bindings[fmt.Sprintf("stage%d-pressure", i)] = fmt.Sprintf("launch.stage%d.pressureAtm", i)
	}
	for flag, key := range bindings {
		if f := fs.Lookup(flag); f != nil {
			// BindPFlag only fails on a nil flag
			_ = viper.BindPFlag(key, f)
		}
	}

	return configErr
}
