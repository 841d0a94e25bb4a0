package replay

import (
	"fmt"

	"github.com/reversteem/reversteem/pkg/model"
)

// Presets are the named per-move time controls, in minutes.
var Presets = map[string]int{
	"blitz":    1,
	"rapid":    5,
	"standard": 60,
	"daily":    1440,
}

// presetOrder fixes the lookup order so tag output is stable.
var presetOrder = []string{"blitz", "rapid", "standard", "daily"}

// PresetName returns the preset matching minutes, if any.
func PresetName(minutes int) (string, bool) {
	for _, name := range presetOrder {
		if Presets[name] == minutes {
			return name, true
		}
	}
	return "", false
}

// GameTags returns the tags a new game post carries: the time control,
// the creator's rating, then fixed discovery tags.
func GameTags(timeoutMinutes, elo int) []string {
	timeTag, ok := PresetName(timeoutMinutes)
	if !ok {
		timeTag = fmt.Sprintf("mins-%d", timeoutMinutes)
	}
	return []string{timeTag, fmt.Sprintf("elo-%d", elo), "reversi", "othello", "board", "game", "steem"}
}

// FormatTimeout renders a timeout for display.
func FormatTimeout(minutes int) string {
	if minutes >= 60 && minutes%60 == 0 {
		return fmt.Sprintf("%d hour(s)", minutes/60)
	}
	return fmt.Sprintf("%d min", minutes)
}

// Status is the one-line summary shown in game lists.
func Status(state model.DerivedState) string {
	if state.Finished {
		if state.Winner == model.WinnerDraw {
			return "Finished — Draw"
		}
		winner := state.Black
		if state.Winner == model.WinnerWhite {
			winner = state.White
		}
		return fmt.Sprintf("Finished — %s wins", winner)
	}
	if state.White == "" {
		return "Waiting for opponent"
	}
	return "In Progress"
}
