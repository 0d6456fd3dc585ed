package models

import "fmt"

// RepeatMode is the player's tri-state repeat toggle.
type RepeatMode uint8

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
	repeatLen
)

// Cycle returns the mode the player lands on after one press of its repeat
// button. The player cycles forward only: off, all, one, off.
func (m RepeatMode) Cycle() RepeatMode {
	return (m + 1) % repeatLen
}

// StepsTo returns the number of forward presses needed to reach target from m.
// A same-mode request costs zero presses.
func (m RepeatMode) StepsTo(target RepeatMode) int {
	steps := 0
	for cur := m; cur != target; cur = cur.Cycle() {
		steps++
	}
	return steps
}

// String returns the lowercase human-readable name used in menu labels.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "off"
	}
}

// Wire returns the mode name used on the ytmd message channels.
func (m RepeatMode) Wire() string {
	switch m {
	case RepeatOne:
		return "ONE"
	case RepeatAll:
		return "ALL"
	default:
		return "NONE"
	}
}

// ParseRepeatMode converts a wire-format mode name (NONE, ONE, ALL) into a
// RepeatMode. Unknown names are an error so a renderer-side change in the
// payload shows up in logs instead of silently mapping to off.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch s {
	case "NONE":
		return RepeatOff, nil
	case "ONE":
		return RepeatOne, nil
	case "ALL":
		return RepeatAll, nil
	default:
		return RepeatOff, fmt.Errorf("unknown repeat mode %q", s)
	}
}
