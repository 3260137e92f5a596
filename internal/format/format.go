// Package format renders game quantities for notifications and API views.
package format

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// Currency renders an amount as $1.5M, $2.0K or $950.
func Currency(amount float64) string {
	switch {
	case amount >= 1_000_000:
		return fmt.Sprintf("$%.1fM", amount/1_000_000)
	case amount >= 1_000:
		return fmt.Sprintf("$%.1fK", amount/1_000)
	}
	return fmt.Sprintf("$%.0f", amount)
}

// Number renders an integer with thousands separators.
func Number(n int) string {
	return humanize.Comma(int64(n))
}

// Float renders a float rounded to whole units with thousands separators.
func Float(f float64) string {
	return humanize.Comma(int64(math.Round(f)))
}

// Date renders a simulated date as "September 1, 1939".
func Date(t time.Time) string {
	return t.Format("January 2, 2006")
}

// DateShort renders a simulated date as "Sep 1, 1939".
func DateShort(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// Relationship returns the band label for a relationship score.
func Relationship(v int) string {
	switch {
	case v >= 75:
		return "Allied"
	case v >= 50:
		return "Friendly"
	case v >= 25:
		return "Cordial"
	case v >= 0:
		return "Neutral"
	case v >= -25:
		return "Strained"
	case v >= -50:
		return "Hostile"
	case v >= -75:
		return "Rival"
	}
	return "At War"
}

// Morale returns the band label for a morale value.
func Morale(v int) string {
	switch {
	case v >= 80:
		return "Enthusiastic"
	case v >= 60:
		return "Satisfied"
	case v >= 40:
		return "Content"
	case v >= 20:
		return "Discontent"
	}
	return "Rebellious"
}

// Strength returns the standing label for an AI nation's strength rating.
func Strength(v float64) string {
	switch {
	case v > 80:
		return "Superpower"
	case v > 60:
		return "Major Power"
	case v > 40:
		return "Regional Power"
	case v > 20:
		return "Minor Power"
	}
	return "Weak State"
}

// DaysUntil returns whole days from current to target, rounded up.
func DaysUntil(current, target time.Time) int {
	return int(math.Ceil(target.Sub(current).Hours() / 24))
}
