// Package scoring implements the point rules of the four sustainability games.
// Scorers are pure: given the same validated input they always return the same award,
// and they never touch storage. The only external input is the quiz answer key,
// which the Engine fetches from a QuestionBank before calling the pure quiz scorer.
package scoring

import (
	"strings"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GAME TYPES
// ══════════════════════════════════════════════════════════════════════════════

// GameType identifies one of the scored games.
type GameType string

const (
	GameQuiz    GameType = "quiz"
	GameMemory  GameType = "memory"
	GamePuzzle  GameType = "puzzle"
	GameSorting GameType = "sorting"
)

// AllGameTypes returns the scored games in display order.
func AllGameTypes() []GameType {
	return []GameType{GameQuiz, GameMemory, GamePuzzle, GameSorting}
}

// IsValid reports whether t is one of the scored games.
func (t GameType) IsValid() bool {
	switch t {
	case GameQuiz, GameMemory, GamePuzzle, GameSorting:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (t GameType) String() string {
	return string(t)
}

// ParseGameType parses a game type name case-insensitively.
func ParseGameType(s string) (GameType, error) {
	t := GameType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.InvalidSubmission(domain, "ParseGameType", "unknown game type %q", s)
	}
	return t, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GAME RESULTS (tagged union)
// ══════════════════════════════════════════════════════════════════════════════

// GameResult is the raw, untrusted outcome of one game session.
// The concrete type selects the scorer; the set is closed to this package.
type GameResult interface {
	GameType() GameType
	isGameResult()
}

// QuizAnswer is one answered question.
type QuizAnswer struct {
	// QuestionID references the question bank.
	QuestionID int64 `json:"questionId"`

	// SelectedOption is the zero-based index of the chosen option.
	SelectedOption int `json:"answer"`
}

// QuizResult is a completed quiz round.
type QuizResult struct {
	Answers          []QuizAnswer `json:"answers"`
	TimeTakenSeconds int          `json:"timeTaken"`
}

// MemoryResult is a completed memory board.
type MemoryResult struct {
	Moves            int `json:"moves"`
	TimeTakenSeconds int `json:"timeTaken"`

	// Level is the difficulty tier, 1..3.
	Level int `json:"level"`
}

// PuzzleResult is a completed puzzle sub-level. Moves and time are cumulative
// for the theme; only the last sub-level of a theme is worth points.
type PuzzleResult struct {
	// Theme is the puzzle topic, 1..5.
	Theme int `json:"theme"`

	// SubLevel is the stage within the theme, 1..5.
	SubLevel int `json:"subLevel"`

	Moves            int `json:"moves"`
	TimeTakenSeconds int `json:"timeTaken"`
}

// SortingResult is a completed waste-sorting round.
type SortingResult struct {
	CorrectSorts     int `json:"correctSorts"`
	TotalItems       int `json:"totalItems"`
	TimeTakenSeconds int `json:"timeTaken"`
}

func (QuizResult) GameType() GameType    { return GameQuiz }
func (MemoryResult) GameType() GameType  { return GameMemory }
func (PuzzleResult) GameType() GameType  { return GamePuzzle }
func (SortingResult) GameType() GameType { return GameSorting }

func (QuizResult) isGameResult()    {}
func (MemoryResult) isGameResult()  {}
func (PuzzleResult) isGameResult()  {}
func (SortingResult) isGameResult() {}

// ══════════════════════════════════════════════════════════════════════════════
// AWARDS
// ══════════════════════════════════════════════════════════════════════════════

// Breakdown itemises how an award was computed.
type Breakdown struct {
	Base          int `json:"base"`
	CorrectCount  int `json:"correctCount,omitempty"`
	AccuracyBonus int `json:"accuracyBonus,omitempty"`
	MoveBonus     int `json:"moveBonus,omitempty"`
	TimeBonus     int `json:"timeBonus"`
}

// Total sums every component.
func (b Breakdown) Total() int {
	return b.Base + b.AccuracyBonus + b.MoveBonus + b.TimeBonus
}

// AnswerFeedback tells the player how one quiz answer was judged.
type AnswerFeedback struct {
	QuestionID     int64  `json:"questionId"`
	SelectedOption int    `json:"userAnswer"`
	CorrectOption  int    `json:"correctAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	Fact           string `json:"fact,omitempty"`
}

// Award is the outcome of scoring a GameResult.
type Award struct {
	GameType  GameType  `json:"gameType"`
	Points    int       `json:"pointsAwarded"`
	Breakdown Breakdown `json:"breakdown"`

	// Recordable is false for intermediate puzzle sub-levels: they are
	// acknowledged but produce no score record.
	Recordable bool `json:"recordable"`

	// Feedback is set for quiz awards only.
	Feedback []AnswerFeedback `json:"results,omitempty"`
}
