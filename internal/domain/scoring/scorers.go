package scoring

import (
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
)

const domain = "scoring"

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ
// ══════════════════════════════════════════════════════════════════════════════

// ValidateQuiz range-checks a quiz result without consulting the answer key.
func ValidateQuiz(cfg Config, r QuizResult) error {
	const op = "ScoreQuiz"
	if len(r.Answers) == 0 {
		return shared.InvalidSubmission(domain, op, "answers are required")
	}
	if cfg.QuizMaxAnswers > 0 && len(r.Answers) > cfg.QuizMaxAnswers {
		return shared.InvalidSubmission(domain, op, "at most %d answers allowed", cfg.QuizMaxAnswers)
	}
	if err := checkTime(cfg, op, r.TimeTakenSeconds); err != nil {
		return err
	}

	seen := make(map[int64]struct{}, len(r.Answers))
	for _, a := range r.Answers {
		if a.QuestionID <= 0 {
			return shared.InvalidSubmission(domain, op, "invalid question id %d", a.QuestionID)
		}
		if _, dup := seen[a.QuestionID]; dup {
			return shared.InvalidSubmission(domain, op, "question %d answered twice", a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
		if a.SelectedOption < 0 || a.SelectedOption >= cfg.QuizOptionCount {
			return shared.InvalidSubmission(domain, op, "answer for question %d must be between 0 and %d",
				a.QuestionID, cfg.QuizOptionCount-1)
		}
	}
	return nil
}

// QuestionIDs returns the ids referenced by a quiz result, in answer order.
func (r QuizResult) QuestionIDs() []int64 {
	ids := make([]int64, len(r.Answers))
	for i, a := range r.Answers {
		ids[i] = a.QuestionID
	}
	return ids
}

// ScoreQuiz awards QuizPointsPerCorrect per correct answer plus a time bonus.
// Every answered question must be present in key.
func ScoreQuiz(cfg Config, r QuizResult, key map[int64]Question) (*Award, error) {
	if err := ValidateQuiz(cfg, r); err != nil {
		return nil, err
	}

	feedback := make([]AnswerFeedback, 0, len(r.Answers))
	correct := 0
	for _, a := range r.Answers {
		q, ok := key[a.QuestionID]
		if !ok {
			return nil, shared.InvalidSubmission(domain, "ScoreQuiz", "unknown question %d", a.QuestionID)
		}
		isCorrect := a.SelectedOption == q.CorrectOption
		if isCorrect {
			correct++
		}
		feedback = append(feedback, AnswerFeedback{
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			CorrectOption:  q.CorrectOption,
			IsCorrect:      isCorrect,
			Fact:           q.Fact,
		})
	}

	b := Breakdown{
		Base:         correct * cfg.QuizPointsPerCorrect,
		CorrectCount: correct,
		TimeBonus:    timeBonus(cfg.QuizTimeTiers, r.TimeTakenSeconds),
	}
	return &Award{
		GameType:   GameQuiz,
		Points:     b.Total(),
		Breakdown:  b,
		Recordable: true,
		Feedback:   feedback,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMORY
// ══════════════════════════════════════════════════════════════════════════════

// ScoreMemory awards the base plus move and time bonuses against the
// level-specific optimal move count.
func ScoreMemory(cfg Config, r MemoryResult) (*Award, error) {
	const op = "ScoreMemory"
	optimal, ok := cfg.MemoryOptimalMoves[r.Level]
	if !ok {
		return nil, shared.InvalidSubmission(domain, op, "unknown memory level %d", r.Level)
	}
	if err := checkMoves(cfg, op, r.Moves); err != nil {
		return nil, err
	}
	if err := checkTime(cfg, op, r.TimeTakenSeconds); err != nil {
		return nil, err
	}

	b := Breakdown{
		Base:      cfg.MemoryBasePoints,
		MoveBonus: moveBonus(cfg.MemoryMoveTiers, r.Moves, optimal),
		TimeBonus: timeBonus(cfg.MemoryTimeTiers, r.TimeTakenSeconds),
	}
	return &Award{GameType: GameMemory, Points: b.Total(), Breakdown: b, Recordable: true}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PUZZLE
// ══════════════════════════════════════════════════════════════════════════════

// ScorePuzzle scores a theme once, on its last sub-level. Earlier sub-levels
// are validated and acknowledged with a zero, non-recordable award.
func ScorePuzzle(cfg Config, r PuzzleResult) (*Award, error) {
	const op = "ScorePuzzle"
	if r.Theme < 1 || r.Theme > cfg.PuzzleThemes {
		return nil, shared.InvalidSubmission(domain, op, "theme must be between 1 and %d", cfg.PuzzleThemes)
	}
	if r.SubLevel < 1 || r.SubLevel > cfg.PuzzleSubLevels {
		return nil, shared.InvalidSubmission(domain, op, "sub-level must be between 1 and %d", cfg.PuzzleSubLevels)
	}
	if err := checkMoves(cfg, op, r.Moves); err != nil {
		return nil, err
	}
	if err := checkTime(cfg, op, r.TimeTakenSeconds); err != nil {
		return nil, err
	}

	if r.SubLevel < cfg.PuzzleSubLevels {
		return &Award{GameType: GamePuzzle}, nil
	}

	b := Breakdown{
		Base:      cfg.PuzzleBasePoints,
		MoveBonus: capped(moveBonus(cfg.PuzzleMoveTiers, r.Moves, cfg.PuzzleOptimalMoves), cfg.PuzzleMoveCap),
		TimeBonus: capped(timeBonus(cfg.PuzzleTimeTiers, r.TimeTakenSeconds), cfg.PuzzleTimeCap),
	}
	return &Award{GameType: GamePuzzle, Points: b.Total(), Breakdown: b, Recordable: true}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SORTING
// ══════════════════════════════════════════════════════════════════════════════

// ScoreSorting awards the base plus an accuracy bonus of
// round(correct/total * max) and a time bonus.
func ScoreSorting(cfg Config, r SortingResult) (*Award, error) {
	const op = "ScoreSorting"
	if r.TotalItems <= 0 {
		return nil, shared.InvalidSubmission(domain, op, "totalItems must be positive")
	}
	if cfg.SortingMaxItems > 0 && r.TotalItems > cfg.SortingMaxItems {
		return nil, shared.InvalidSubmission(domain, op, "totalItems must not exceed %d", cfg.SortingMaxItems)
	}
	if r.CorrectSorts < 0 || r.CorrectSorts > r.TotalItems {
		return nil, shared.InvalidSubmission(domain, op, "correctSorts must be between 0 and totalItems")
	}
	if err := checkTime(cfg, op, r.TimeTakenSeconds); err != nil {
		return nil, err
	}

	b := Breakdown{
		Base:          cfg.SortingBasePoints,
		AccuracyBonus: capped(roundRatio(r.CorrectSorts, r.TotalItems, cfg.SortingAccuracyMaxBonus), cfg.SortingAccuracyMaxBonus),
		TimeBonus:     timeBonus(cfg.SortingTimeTiers, r.TimeTakenSeconds),
	}
	return &Award{GameType: GameSorting, Points: b.Total(), Breakdown: b, Recordable: true}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// INPUT GUARDS
// ══════════════════════════════════════════════════════════════════════════════

func checkTime(cfg Config, op string, seconds int) error {
	if seconds < 0 || (cfg.MaxTimeSeconds > 0 && seconds > cfg.MaxTimeSeconds) {
		return shared.InvalidSubmission(domain, op, "timeTaken must be between 0 and %d seconds", cfg.MaxTimeSeconds)
	}
	return nil
}

func checkMoves(cfg Config, op string, moves int) error {
	if moves < 1 || (cfg.MaxMoves > 0 && moves > cfg.MaxMoves) {
		return shared.InvalidSubmission(domain, op, "moves must be between 1 and %d", cfg.MaxMoves)
	}
	return nil
}
