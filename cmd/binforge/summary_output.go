package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"binforge/internal/buildpipeline"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	headColor = color.New(color.Bold)
)

func printBuildSummary(out io.Writer, res buildpipeline.BuildResult) {
	for _, b := range res.Batches {
		printBatchSummary(out, b)
	}
	if len(res.Batches) > 1 {
		t := res.Total()
		fmt.Fprintf(out, "%s %d attempted, %s, %s\n",
			headColor.Sprint("total:"), t.Attempted,
			okColor.Sprintf("%d ok", t.Succeeded),
			failText(t.Failed()))
	}
}

func printBatchSummary(out io.Writer, b buildpipeline.BatchResult) {
	s := b.Summary
	fmt.Fprintf(out, "%s %d attempted, %s, %s in %s (peak %d/%d)\n",
		headColor.Sprintf("%s:", b.Mode),
		s.Total.Attempted,
		okColor.Sprintf("%d ok", s.Total.Succeeded),
		failText(s.Total.Failed()),
		b.Elapsed.Round(10*time.Millisecond),
		b.Peak, b.Capacity)
	for _, name := range s.Compilers() {
		c := s.PerCompiler[name]
		line := fmt.Sprintf("  %-12s %6d ok %6d compiler failures", name, c.Succeeded, c.CompilerFailures)
		if other := c.ProcessErrors + c.FilesystemErrors; other > 0 {
			line += fmt.Sprintf(" %6d errors", other)
		}
		if c.Cancelled > 0 {
			line += fmt.Sprintf(" %6d cancelled", c.Cancelled)
		}
		fmt.Fprintln(out, line)
	}
	if s.Skipped > 0 {
		fmt.Fprintln(out, warnColor.Sprintf("  %d source(s) skipped, see the build log", s.Skipped))
	}
}

func failText(n int) string {
	if n == 0 {
		return "0 failed"
	}
	return failColor.Sprintf("%d failed", n)
}
