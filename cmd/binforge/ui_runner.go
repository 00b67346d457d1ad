package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"binforge/internal/buildpipeline"
	"binforge/internal/ui"
)

type buildOutcome struct {
	result buildpipeline.BuildResult
	err    error
}

// runBuildWithUI runs the build in the background and renders its events.
// The UI exits when the build closes the event channel. Quitting the UI first
// (ctrl+c or q) cancels the build.
func runBuildWithUI(ctx context.Context, title string, req *buildpipeline.BuildRequest, opts ...tea.ProgramOption) (buildpipeline.BuildResult, error) {
	if req == nil {
		return buildpipeline.BuildResult{}, fmt.Errorf("missing build request")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = teeSink{buildpipeline.ChannelSink{Ch: events}, req.Progress}
		res, err := buildpipeline.Build(ctx, &reqCopy)
		outcomeCh <- buildOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, events)
	opts = append([]tea.ProgramOption{tea.WithOutput(os.Stdout), tea.WithContext(ctx)}, opts...)
	_, uiErr := tea.NewProgram(model, opts...).Run()

	// Nobody renders from here on; keep draining so the build never blocks
	// on a full channel.
	go func() {
		for range events {
		}
	}()

	var outcome buildOutcome
	select {
	case outcome = <-outcomeCh:
	default:
		cancel()
		outcome = <-outcomeCh
	}
	if uiErr != nil && outcome.err == nil && ctx.Err() == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

// teeSink forwards every event to both sinks; either may be nil.
type teeSink [2]buildpipeline.ProgressSink

func (t teeSink) OnEvent(ev buildpipeline.Event) {
	for _, s := range t {
		if s != nil {
			s.OnEvent(ev)
		}
	}
}
