// Package quiz builds the option list for a "who said it" quiz poll from the
// committee roster.
package quiz

import (
	"errors"
	"math/rand"
)

// MaxOptions is the largest option count a single-choice Telegram poll allows.
const MaxOptions = 10

// ErrTargetNotInRoster reports that the chosen answer is not part of the
// roster the options are built from.
var ErrTargetNotInRoster = errors.New("quiz: target not in roster")

// OptionSet is a bounded list of poll options with the position of the
// correct answer.
type OptionSet struct {
	Options      []string
	CorrectIndex int
}

// Split builds the quiz options for the given target. The remaining roster is
// shuffled uniformly and the target reinserted at a uniformly random position
// that stays within the first max entries; the list is then truncated to max.
// Roster members beyond the cutoff are dropped from the poll; with a roster
// no larger than max every member is covered.
//
// rng may be nil, in which case the shared math/rand source is used. Passing
// a seeded source makes the result deterministic for tests.
func Split(roster []string, target string, max int, rng *rand.Rand) (OptionSet, error) {
	if max <= 1 {
		max = MaxOptions
	}

	found := false
	rest := make([]string, 0, len(roster))
	for _, name := range roster {
		if !found && name == target {
			found = true
			continue
		}
		rest = append(rest, name)
	}
	if !found {
		return OptionSet{}, ErrTargetNotInRoster
	}

	shuffle := rand.Shuffle
	intn := rand.Intn
	if rng != nil {
		shuffle = rng.Shuffle
		intn = rng.Intn
	}
	shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	// Valid insertion positions are 0..len(rest); the upper bound is also
	// capped at max-1 so the reinserted target survives truncation.
	bound := max - 1
	if len(rest)+1 < bound {
		bound = len(rest) + 1
	}
	index := intn(bound)

	options := make([]string, 0, len(rest)+1)
	options = append(options, rest[:index]...)
	options = append(options, target)
	options = append(options, rest[index:]...)

	if len(options) > max {
		options = options[:max]
	}
	return OptionSet{Options: options, CorrectIndex: index}, nil
}
