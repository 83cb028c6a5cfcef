package songs

import (
	"errors"
	"math/rand/v2"
)

// ErrEmptyFolder is returned when a group has nothing to play.
var ErrEmptyFolder = errors.New("songs: no songs in folder")

// Mode selects how Choose picks an entry.
type Mode int

const (
	// ModeRandom picks uniformly at random.
	ModeRandom Mode = iota
	// ModeFirst picks the first entry of the sorted listing.
	ModeFirst
)

func (m Mode) String() string {
	switch m {
	case ModeRandom:
		return "random"
	case ModeFirst:
		return "first"
	}
	return "unknown"
}

// Choose returns one of names. rng may be nil to use the global source.
func Choose(names []string, mode Mode, rng *rand.Rand) (string, error) {
	if len(names) == 0 {
		return "", ErrEmptyFolder
	}
	switch mode {
	case ModeFirst:
		return names[0], nil
	default:
		if rng != nil {
			return names[rng.IntN(len(names))], nil
		}
		return names[rand.IntN(len(names))], nil
	}
}
