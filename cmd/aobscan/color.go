package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// styles holds the color formatters shared by find and report.
type styles struct {
	findingHeading *color.Color
	id             *color.Color
	sigName        *color.Color
	heading        *color.Color
	match          *color.Color
	metadata       *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		findingHeading: color.New(color.Bold, color.FgHiWhite),
		id:             color.New(color.FgHiGreen),
		sigName:        color.New(color.Bold, color.FgHiBlue),
		heading:        color.New(color.Bold),
		match:          color.New(color.Bold, color.FgRed),
		metadata:       color.New(color.FgHiBlue),
	}

	for _, c := range []*color.Color{s.findingHeading, s.id, s.sigName, s.heading, s.match, s.metadata} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// stylesFor resolves a --color value. "auto" enables color when stdout is a
// terminal and NO_COLOR is unset.
func stylesFor(mode string) (*styles, error) {
	switch mode {
	case "always":
		return newStyles(true), nil
	case "never":
		return newStyles(false), nil
	case "auto", "":
		enabled := term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
		return newStyles(enabled), nil
	default:
		return nil, fmt.Errorf("unknown color mode: %s", mode)
	}
}
