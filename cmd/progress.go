package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

func getProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// stageBars draws one progress bar per ingestion stage. The pipeline only
// reports when a stage starts, so a bar fills when the next one begins.
type stageBars struct {
	w       io.Writer
	spinner *progressbar.ProgressBar
	bar     *progressbar.ProgressBar
}

func newStageBars(w io.Writer, spinner *progressbar.ProgressBar) *stageBars {
	return &stageBars{w: w, spinner: spinner}
}

func (s *stageBars) start(description string, total int) {
	s.done()
	s.bar = getProgressBar(s.w, total, description)
}

// done fills whatever is still running.
func (s *stageBars) done() {
	if s.spinner != nil {
		_ = s.spinner.Finish()
		fmt.Fprintln(s.w)
		s.spinner = nil
	}
	if s.bar != nil {
		_ = s.bar.Finish()
		fmt.Fprintln(s.w)
		s.bar = nil
	}
}

// abort leaves the running bar where it stopped.
func (s *stageBars) abort() {
	for _, bar := range []*progressbar.ProgressBar{s.spinner, s.bar} {
		if bar != nil {
			_ = bar.Exit()
			fmt.Fprintln(s.w)
		}
	}
	s.spinner, s.bar = nil, nil
}
