package scoring

// TimeTier grants Bonus when the time taken is strictly below UnderSeconds.
type TimeTier struct {
	UnderSeconds int
	Bonus        int
}

// MoveTier grants Bonus when moves are strictly below optimal*FactorPercent/100.
type MoveTier struct {
	FactorPercent int
	Bonus         int
}

// Config holds every point constant. Tiers are evaluated in order and the
// first matching tier wins, so they must be sorted from strictest to loosest.
type Config struct {
	// ── Quiz ──────────────────────────────────────────────────────────────────
	QuizPointsPerCorrect int
	QuizTimeTiers        []TimeTier
	QuizMaxAnswers       int
	QuizOptionCount      int
	QuizQuestionsPerGame int
	QuizTimeLimitSeconds int

	// ── Memory ────────────────────────────────────────────────────────────────
	MemoryBasePoints   int
	MemoryOptimalMoves map[int]int // level -> optimal move count
	MemoryMoveTiers    []MoveTier
	MemoryTimeTiers    []TimeTier

	// ── Puzzle ────────────────────────────────────────────────────────────────
	PuzzleBasePoints   int
	PuzzleThemes       int
	PuzzleSubLevels    int
	PuzzleOptimalMoves int
	PuzzleMoveTiers    []MoveTier
	PuzzleMoveCap      int
	PuzzleTimeTiers    []TimeTier
	PuzzleTimeCap      int

	// ── Sorting ───────────────────────────────────────────────────────────────
	SortingBasePoints       int
	SortingAccuracyMaxBonus int
	SortingTimeTiers        []TimeTier
	SortingMaxItems         int

	// ── Input guards ──────────────────────────────────────────────────────────
	MaxTimeSeconds int
	MaxMoves       int
}

// DefaultConfig returns the production point table.
func DefaultConfig() Config {
	return Config{
		QuizPointsPerCorrect: 10,
		QuizTimeTiers:        []TimeTier{{UnderSeconds: 45, Bonus: 10}, {UnderSeconds: 90, Bonus: 5}},
		QuizMaxAnswers:       50,
		QuizOptionCount:      4,
		QuizQuestionsPerGame: 5,
		QuizTimeLimitSeconds: 60,

		MemoryBasePoints:   50,
		MemoryOptimalMoves: map[int]int{1: 80, 2: 160, 3: 240},
		MemoryMoveTiers:    []MoveTier{{FactorPercent: 120, Bonus: 20}, {FactorPercent: 150, Bonus: 10}, {FactorPercent: 200, Bonus: 5}},
		MemoryTimeTiers:    []TimeTier{{UnderSeconds: 60, Bonus: 10}, {UnderSeconds: 120, Bonus: 5}},

		PuzzleBasePoints:   30,
		PuzzleThemes:       5,
		PuzzleSubLevels:    5,
		PuzzleOptimalMoves: 50,
		PuzzleMoveTiers:    []MoveTier{{FactorPercent: 120, Bonus: 15}, {FactorPercent: 150, Bonus: 10}, {FactorPercent: 200, Bonus: 5}},
		PuzzleMoveCap:      15,
		PuzzleTimeTiers:    []TimeTier{{UnderSeconds: 120, Bonus: 10}, {UnderSeconds: 180, Bonus: 5}},
		PuzzleTimeCap:      10,

		SortingBasePoints:       20,
		SortingAccuracyMaxBonus: 20,
		SortingTimeTiers:        []TimeTier{{UnderSeconds: 60, Bonus: 10}, {UnderSeconds: 90, Bonus: 5}},
		SortingMaxItems:         500,

		MaxTimeSeconds: 6 * 60 * 60,
		MaxMoves:       10000,
	}
}

// timeBonus returns the bonus of the first tier the time falls under.
func timeBonus(tiers []TimeTier, seconds int) int {
	for _, t := range tiers {
		if seconds < t.UnderSeconds {
			return t.Bonus
		}
	}
	return 0
}

// moveBonus returns the bonus of the first tier the move count falls under.
// Integer arithmetic keeps the comparison exact: moves < optimal*f/100.
func moveBonus(tiers []MoveTier, moves, optimal int) int {
	for _, t := range tiers {
		if moves*100 < optimal*t.FactorPercent {
			return t.Bonus
		}
	}
	return 0
}

// capped limits v to max when max is positive.
func capped(v, max int) int {
	if max > 0 && v > max {
		return max
	}
	return v
}

// roundRatio returns round(num/den * scale) with halves rounded up.
// num and den must be non-negative and den positive.
func roundRatio(num, den, scale int) int {
	return (2*num*scale + den) / (2 * den)
}
