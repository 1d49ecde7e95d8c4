package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/waterrocket/simulator/internal/api"
	"github.com/waterrocket/simulator/internal/config"
	"github.com/waterrocket/simulator/internal/playback"
	"github.com/waterrocket/simulator/pkg/core"
)

// runCommand flies one rocket and prints the flight summary. With --server
// the run is launched on a remote `waterrocket serve` instead.
func runCommand(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("run")
	addLaunchFlags(fs)
	at := fs.Float64("at", 0, "also print the panel readout at this playback time in seconds")
	asJSON := fs.Bool("json", false, "print JSON instead of text")
	server := fs.String("server", "", "launch on a running server at this base URL")
	apiKey := fs.String("api-key", "", "API key for --server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	configErr := loadConfig(fs)

	input := config.GetLaunchInput()
	site := config.GetLaunchSite()
	withState := fs.Changed("at")

	if *server != "" {
		var sitePtr *core.LaunchSite
		if fs.Changed("site") {
			sitePtr = &site
		}
		return runRemote(ctx, api.New(*server, *apiKey), input.Stages, sitePtr, withState, *at, *asJSON, out)
	}

	a, err := newApp(ctx, configErr)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	run, err := a.runner.Launch(ctx, input, site)
	if err != nil {
		return err
	}

	var state *api.StateResponse
	if withState {
		s, err := a.runner.StateAt(*at)
		if err != nil {
			return err
		}
		state = &api.StateResponse{RunID: run.ID, At: *at, State: s, Panel: playback.PanelOf(s)}
	}
	return printRun(out, run, state, *asJSON)
}

// runRemote launches on a server. A nil site leaves the choice to the server.
func runRemote(ctx context.Context, c *api.Client, stages [core.StageCount]core.StageInput, site *core.LaunchSite, withState bool, at float64, asJSON bool, out io.Writer) error {
	if err := c.Healthcheck(); err != nil {
		return err
	}

	run, err := c.Launch(ctx, &stages, site)
	if err != nil {
		return err
	}

	var state *api.StateResponse
	if withState {
		if state, err = c.StateAt(ctx, at); err != nil {
			return err
		}
	}
	return printRun(out, run, state, asJSON)
}

// printRun writes the run as JSON or as the flight summary text.
func printRun(out io.Writer, run *core.Run, state *api.StateResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if state != nil {
			return enc.Encode(state)
		}
		return enc.Encode(run)
	}

	r := run.Result
	fmt.Fprintf(out, "Run #%d at %s\n", run.ID, run.Site.Name)
	for i, s := range run.Input.Stages {
		fmt.Fprintf(out, "  stage %d: %d mL @ %.1f atm\n", i+1, s.WaterML, s.PressureAtm)
	}
	fmt.Fprintf(out, "Peak height:   %.2f m\n", r.MaxHeight)
	fmt.Fprintf(out, "Time to peak:  %.2f s\n", r.MaxHeightTime)
	fmt.Fprintf(out, "Flight time:   %.2f s\n", r.TotalElapsedTime)
	for _, e := range r.Events {
		fmt.Fprintf(out, "Separation:    stage %d at %.2f s, %.2f m, %.2f m/s\n", e.FromStage, e.Time, e.Height, e.Velocity)
	}
	if r.Success {
		fmt.Fprintln(out, "Result:        launch successful")
	} else {
		fmt.Fprintln(out, "Result:        launch failed")
	}

	if state != nil {
		fmt.Fprintf(out, "At %.2f s:     %s\n", state.At, state.Panel)
	}
	return nil
}
