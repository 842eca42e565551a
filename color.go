// Package authproxy holds the ambient concerns (logging, colorized
// diagnostics, identifiers, error taxonomy) shared by the proxy daemon.
package authproxy

import (
	"github.com/fatih/color"
)

// colorize wraps s in the given foreground attribute, used by the
// notice/warning/error lines cmd/proxyd and the supervisor emit for a
// peer accept, a denial, a pool-exhaustion refusal, and the notifier
// dump — Cyan/Yellow/Magenta there, Green/Red around the daemon's
// startup and fatal-exit lines.
func colorize(attr color.Attribute, s string) string {
	c := color.New(attr)
	c.EnableColor()
	return c.SprintFunc()(s)
}

func Cyan(s string) string    { return colorize(color.FgHiCyan, s) }
func Green(s string) string   { return colorize(color.FgHiGreen, s) }
func Magenta(s string) string { return colorize(color.FgHiMagenta, s) }
func Yellow(s string) string  { return colorize(color.FgHiYellow, s) }
func Red(s string) string     { return colorize(color.FgHiRed, s) }
