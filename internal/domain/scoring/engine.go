package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
)

// Question is one entry of the quiz question bank.
type Question struct {
	ID            int64
	Text          string
	Options       [4]string
	CorrectOption int
	Fact          string
	Difficulty    string
}

// QuestionBank is the external source of quiz questions and their answers.
type QuestionBank interface {
	// AnswerKey returns the questions with the given ids. Missing ids are
	// simply absent from the result map.
	AnswerKey(ctx context.Context, ids []int64) (map[int64]Question, error)

	// Sample returns up to n random questions.
	Sample(ctx context.Context, n int) ([]Question, error)
}

// Engine dispatches a GameResult to the scorer for its game type.
type Engine struct {
	cfg  Config
	bank QuestionBank
}

// NewEngine creates a new scoring engine.
func NewEngine(cfg Config, bank QuestionBank) *Engine {
	return &Engine{cfg: cfg, bank: bank}
}

// Config returns the point table the engine scores with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Score computes the award for r. Quiz results are validated before the
// answer key is fetched, so malformed payloads never reach the bank.
func (e *Engine) Score(ctx context.Context, r GameResult) (*Award, error) {
	if isNilResult(r) {
		return nil, shared.InvalidSubmission(domain, "Score", "game result is required")
	}
	switch v := r.(type) {
	case QuizResult:
		return e.scoreQuiz(ctx, v)
	case *QuizResult:
		return e.scoreQuiz(ctx, *v)
	case MemoryResult:
		return ScoreMemory(e.cfg, v)
	case *MemoryResult:
		return ScoreMemory(e.cfg, *v)
	case PuzzleResult:
		return ScorePuzzle(e.cfg, v)
	case *PuzzleResult:
		return ScorePuzzle(e.cfg, *v)
	case SortingResult:
		return ScoreSorting(e.cfg, v)
	case *SortingResult:
		return ScoreSorting(e.cfg, *v)
	default:
		return nil, shared.InvalidSubmission(domain, "Score", "unsupported game result %T", r)
	}
}

// isNilResult reports a missing result, including typed nil pointers.
func isNilResult(r GameResult) bool {
	switch v := r.(type) {
	case nil:
		return true
	case *QuizResult:
		return v == nil
	case *MemoryResult:
		return v == nil
	case *PuzzleResult:
		return v == nil
	case *SortingResult:
		return v == nil
	}
	return false
}

func (e *Engine) scoreQuiz(ctx context.Context, r QuizResult) (*Award, error) {
	if err := ValidateQuiz(e.cfg, r); err != nil {
		return nil, err
	}
	if e.bank == nil {
		return nil, shared.StoreUnavailable(domain, "ScoreQuiz", fmt.Errorf("question bank not configured"))
	}
	key, err := e.bank.AnswerKey(ctx, r.QuestionIDs())
	if err != nil {
		return nil, err
	}
	return ScoreQuiz(e.cfg, r, key)
}

// DecodeGameResult parses a JSON payload into the concrete result for t.
// Unknown fields and trailing data are rejected.
func DecodeGameResult(t GameType, payload []byte) (GameResult, error) {
	const op = "Decode"
	var (
		target any
		result GameResult
	)
	switch t {
	case GameQuiz:
		v := &QuizResult{}
		target, result = v, v
	case GameMemory:
		v := &MemoryResult{}
		target, result = v, v
	case GamePuzzle:
		v := &PuzzleResult{}
		target, result = v, v
	case GameSorting:
		v := &SortingResult{}
		target, result = v, v
	default:
		return nil, shared.InvalidSubmission(domain, op, "unknown game type %q", t)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, shared.WrapError(domain, op, shared.ErrInvalidSubmission, "malformed game payload", err)
	}
	if dec.More() {
		return nil, shared.InvalidSubmission(domain, op, "unexpected data after game payload")
	}

	return deref(result), nil
}

// deref turns the decoding pointer back into a value so callers can
// type-switch on plain structs.
func deref(r GameResult) GameResult {
	switch v := r.(type) {
	case *QuizResult:
		return *v
	case *MemoryResult:
		return *v
	case *PuzzleResult:
		return *v
	case *SortingResult:
		return *v
	}
	return r
}
