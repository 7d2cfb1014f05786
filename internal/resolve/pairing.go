package resolve

// TeamPair links one noisy team name to one clean team name.
type TeamPair struct {
	Noisy   string
	Clean   string
	Score   float64
	Matched bool
}

// Assignment is a full pairing of the two noisy teams against the two
// clean teams.
type Assignment struct {
	Pairs   [2]TeamPair
	Swapped bool
}

// Matched returns the number of pairs that passed the fuzzy check.
func (a Assignment) Matched() int {
	n := 0
	for _, p := range a.Pairs {
		if p.Matched {
			n++
		}
	}
	return n
}

// Complete reports whether both teams matched.
func (a Assignment) Complete() bool { return a.Matched() == 2 }

func (a Assignment) total() float64 {
	return a.Pairs[0].Score + a.Pairs[1].Score
}

// PairTeams evaluates the positional (a-a, b-b) and swapped (a-b, b-a)
// assignments and returns the one with more matched pairs, then the
// higher summed score. Positional wins ties.
func PairTeams(noisyA, noisyB, cleanA, cleanB string, threshold float64) Assignment {
	positional := assign(threshold, false, [2]string{noisyA, noisyB}, [2]string{cleanA, cleanB})
	swapped := assign(threshold, true, [2]string{noisyA, noisyB}, [2]string{cleanB, cleanA})

	if swapped.Matched() > positional.Matched() ||
		(swapped.Matched() == positional.Matched() && swapped.total() > positional.total()) {
		return swapped
	}
	return positional
}

func assign(threshold float64, swapped bool, noisy, clean [2]string) Assignment {
	out := Assignment{Swapped: swapped}
	for i := range noisy {
		s, ok := score(noisy[i], clean[i], threshold)
		out.Pairs[i] = TeamPair{Noisy: noisy[i], Clean: clean[i], Score: s, Matched: ok}
	}
	return out
}
