package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"binforge/internal/buildlog"
)

// setupLog opens the build log selected by the persistent flags and attaches
// it to the command context. status feeds heartbeat events and may be nil.
func setupLog(cmd *cobra.Command, status func() string) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	output, err := flags.GetString("log")
	if err != nil {
		return nil, fmt.Errorf("failed to get log flag: %w", err)
	}
	levelStr, err := flags.GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	formatStr, err := flags.GetString("log-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-format flag: %w", err)
	}
	interval, err := flags.GetDuration("log-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-heartbeat flag: %w", err)
	}

	level, err := buildlog.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	format, err := buildlog.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}
	if level == buildlog.LevelOff {
		cmd.SetContext(buildlog.WithLog(cmd.Context(), buildlog.Nop))
		return func() {}, nil
	}

	log, err := buildlog.New(buildlog.Config{Level: level, Format: format, OutputPath: output})
	if err != nil {
		return nil, err
	}
	cmd.SetContext(buildlog.WithLog(cmd.Context(), log))
	heartbeat := buildlog.StartHeartbeat(log, interval, status)

	return func() {
		heartbeat.Stop()
		if err := log.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "log: flush error: %v\n", err)
		}
		if err := log.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "log: close error: %v\n", err)
		}
	}, nil
}
