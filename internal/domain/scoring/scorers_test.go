package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBank struct {
	questions map[int64]Question
	calls     int
	err       error
}

func (b *stubBank) AnswerKey(ctx context.Context, ids []int64) (map[int64]Question, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	out := make(map[int64]Question, len(ids))
	for _, id := range ids {
		if q, ok := b.questions[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (b *stubBank) Sample(ctx context.Context, n int) ([]Question, error) {
	return nil, nil
}

func newBank() *stubBank {
	return &stubBank{questions: map[int64]Question{
		1: {ID: 1, CorrectOption: 0, Fact: "Recycling one can saves energy."},
		2: {ID: 2, CorrectOption: 2},
		3: {ID: 3, CorrectOption: 3},
	}}
}

// ─────────────────────────────────────────────────────────────────────────────
// Quiz
// ─────────────────────────────────────────────────────────────────────────────

func TestScoreQuiz_CorrectCountAndTimeBonus(t *testing.T) {
	cfg := DefaultConfig()
	bank := newBank()
	r := QuizResult{
		Answers: []QuizAnswer{
			{QuestionID: 1, SelectedOption: 0},
			{QuestionID: 2, SelectedOption: 1},
			{QuestionID: 3, SelectedOption: 3},
		},
		TimeTakenSeconds: 30,
	}

	award, err := ScoreQuiz(cfg, r, bank.questions)

	require.NoError(t, err)
	assert.Equal(t, 2, award.Breakdown.CorrectCount)
	assert.Equal(t, 10, award.Breakdown.TimeBonus)
	assert.Equal(t, 2*10+10, award.Points)
	assert.True(t, award.Recordable)
	require.Len(t, award.Feedback, 3)
	assert.True(t, award.Feedback[0].IsCorrect)
	assert.Equal(t, "Recycling one can saves energy.", award.Feedback[0].Fact)
	assert.False(t, award.Feedback[1].IsCorrect)
	assert.Equal(t, 2, award.Feedback[1].CorrectOption)
}

func TestScoreQuiz_TimeTiers(t *testing.T) {
	cfg := DefaultConfig()
	key := newBank().questions
	answers := []QuizAnswer{{QuestionID: 1, SelectedOption: 0}}

	cases := []struct {
		seconds int
		bonus   int
	}{
		{0, 10}, {44, 10}, {45, 5}, {89, 5}, {90, 0}, {600, 0},
	}
	for _, tc := range cases {
		award, err := ScoreQuiz(cfg, QuizResult{Answers: answers, TimeTakenSeconds: tc.seconds}, key)
		require.NoError(t, err)
		assert.Equal(t, tc.bonus, award.Breakdown.TimeBonus, "time %d", tc.seconds)
		assert.Equal(t, 10+tc.bonus, award.Points)
	}
}

func TestScoreQuiz_Rejects(t *testing.T) {
	cfg := DefaultConfig()
	key := newBank().questions

	cases := map[string]QuizResult{
		"no answers":       {TimeTakenSeconds: 10},
		"negative time":    {Answers: []QuizAnswer{{QuestionID: 1}}, TimeTakenSeconds: -1},
		"absurd time":      {Answers: []QuizAnswer{{QuestionID: 1}}, TimeTakenSeconds: cfg.MaxTimeSeconds + 1},
		"option too large": {Answers: []QuizAnswer{{QuestionID: 1, SelectedOption: 4}}},
		"negative option":  {Answers: []QuizAnswer{{QuestionID: 1, SelectedOption: -1}}},
		"duplicate":        {Answers: []QuizAnswer{{QuestionID: 1}, {QuestionID: 1}}},
		"unknown question": {Answers: []QuizAnswer{{QuestionID: 99}}},
		"zero id":          {Answers: []QuizAnswer{{QuestionID: 0}}},
	}
	for name, r := range cases {
		_, err := ScoreQuiz(cfg, r, key)
		assert.True(t, shared.IsInvalidSubmission(err), name)
	}
}

func TestEngine_QuizValidatesBeforeFetchingKey(t *testing.T) {
	bank := newBank()
	e := NewEngine(DefaultConfig(), bank)

	_, err := e.Score(context.Background(), QuizResult{})

	assert.True(t, shared.IsInvalidSubmission(err))
	assert.Equal(t, 0, bank.calls)
}

func TestEngine_QuizBankFailurePropagates(t *testing.T) {
	bank := newBank()
	bank.err = shared.StoreUnavailable("quiz", "AnswerKey", errors.New("down"))
	e := NewEngine(DefaultConfig(), bank)

	_, err := e.Score(context.Background(), QuizResult{Answers: []QuizAnswer{{QuestionID: 1}}})

	assert.True(t, shared.IsRetryable(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// Memory
// ─────────────────────────────────────────────────────────────────────────────

func TestScoreMemory_EndToEndExample(t *testing.T) {
	award, err := ScoreMemory(DefaultConfig(), MemoryResult{Moves: 15, TimeTakenSeconds: 50, Level: 2})

	require.NoError(t, err)
	assert.Equal(t, 50, award.Breakdown.Base)
	assert.Equal(t, 20, award.Breakdown.MoveBonus)
	assert.Equal(t, 10, award.Breakdown.TimeBonus)
	assert.Equal(t, 80, award.Points)
}

func TestScoreMemory_MoveTiers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemoryOptimalMoves = map[int]int{1: 20}

	cases := []struct {
		moves int
		bonus int
	}{
		{23, 20}, // < 24
		{24, 10}, // == 1.2x
		{29, 10}, // < 30
		{30, 5},
		{39, 5},
		{40, 0},
	}
	for _, tc := range cases {
		award, err := ScoreMemory(cfg, MemoryResult{Moves: tc.moves, TimeTakenSeconds: 200, Level: 1})
		require.NoError(t, err)
		assert.Equal(t, tc.bonus, award.Breakdown.MoveBonus, "moves %d", tc.moves)
		assert.Equal(t, 50+tc.bonus, award.Points)
	}
}

func TestScoreMemory_Rejects(t *testing.T) {
	cfg := DefaultConfig()
	for name, r := range map[string]MemoryResult{
		"level 0":    {Moves: 10, Level: 0},
		"level 4":    {Moves: 10, Level: 4},
		"zero moves": {Moves: 0, Level: 1},
		"too many":   {Moves: cfg.MaxMoves + 1, Level: 1},
		"neg time":   {Moves: 10, Level: 1, TimeTakenSeconds: -5},
	} {
		_, err := ScoreMemory(cfg, r)
		assert.True(t, shared.IsInvalidSubmission(err), name)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Puzzle
// ─────────────────────────────────────────────────────────────────────────────

func TestScorePuzzle_ThemeScoredOnlyOnLastSubLevel(t *testing.T) {
	cfg := DefaultConfig()
	total := 0
	recorded := 0
	for sub := 1; sub <= cfg.PuzzleSubLevels; sub++ {
		award, err := ScorePuzzle(cfg, PuzzleResult{Theme: 3, SubLevel: sub, Moves: 40, TimeTakenSeconds: 100})
		require.NoError(t, err)
		total += award.Points
		if award.Recordable {
			recorded++
		}
	}

	assert.Equal(t, 1, recorded)
	assert.Equal(t, 30+15+10, total)
}

func TestScorePuzzle_BaseIsSameForEveryTheme(t *testing.T) {
	cfg := DefaultConfig()
	for theme := 1; theme <= cfg.PuzzleThemes; theme++ {
		award, err := ScorePuzzle(cfg, PuzzleResult{Theme: theme, SubLevel: 5, Moves: 1000, TimeTakenSeconds: 1000})
		require.NoError(t, err)
		assert.Equal(t, 30, award.Points, "theme %d", theme)
	}
}

func TestScorePuzzle_BonusCaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PuzzleMoveTiers = []MoveTier{{FactorPercent: 200, Bonus: 99}}
	cfg.PuzzleTimeTiers = []TimeTier{{UnderSeconds: 1000, Bonus: 99}}

	award, err := ScorePuzzle(cfg, PuzzleResult{Theme: 1, SubLevel: 5, Moves: 1, TimeTakenSeconds: 1})

	require.NoError(t, err)
	assert.Equal(t, 15, award.Breakdown.MoveBonus)
	assert.Equal(t, 10, award.Breakdown.TimeBonus)
}

func TestScorePuzzle_Rejects(t *testing.T) {
	cfg := DefaultConfig()
	for name, r := range map[string]PuzzleResult{
		"theme 0":    {Theme: 0, SubLevel: 1, Moves: 1},
		"theme 6":    {Theme: 6, SubLevel: 1, Moves: 1},
		"sub 0":      {Theme: 1, SubLevel: 0, Moves: 1},
		"sub 6":      {Theme: 1, SubLevel: 6, Moves: 1},
		"zero moves": {Theme: 1, SubLevel: 5, Moves: 0},
	} {
		_, err := ScorePuzzle(cfg, r)
		assert.True(t, shared.IsInvalidSubmission(err), name)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Sorting
// ─────────────────────────────────────────────────────────────────────────────

func TestScoreSorting_BaseOnlyBoundary(t *testing.T) {
	award, err := ScoreSorting(DefaultConfig(), SortingResult{CorrectSorts: 0, TotalItems: 10, TimeTakenSeconds: 200})

	require.NoError(t, err)
	assert.Equal(t, 20, award.Points)
	assert.Equal(t, 0, award.Breakdown.AccuracyBonus)
	assert.Equal(t, 0, award.Breakdown.TimeBonus)
}

func TestScoreSorting_AccuracyRounding(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		correct, total, bonus int
	}{
		{10, 10, 20},
		{9, 10, 18},
		{1, 3, 7},  // 6.67
		{1, 8, 3},  // 2.5 rounds up
		{2, 3, 13}, // 13.33
	}
	for _, tc := range cases {
		award, err := ScoreSorting(cfg, SortingResult{CorrectSorts: tc.correct, TotalItems: tc.total, TimeTakenSeconds: 100})
		require.NoError(t, err)
		assert.Equal(t, tc.bonus, award.Breakdown.AccuracyBonus, "%d/%d", tc.correct, tc.total)
	}
}

func TestScoreSorting_TimeTiers(t *testing.T) {
	cfg := DefaultConfig()
	for seconds, bonus := range map[int]int{59: 10, 60: 5, 89: 5, 90: 0} {
		award, err := ScoreSorting(cfg, SortingResult{CorrectSorts: 10, TotalItems: 10, TimeTakenSeconds: seconds})
		require.NoError(t, err)
		assert.Equal(t, bonus, award.Breakdown.TimeBonus, "time %d", seconds)
		assert.Equal(t, 20+20+bonus, award.Points)
	}
}

func TestScoreSorting_Rejects(t *testing.T) {
	cfg := DefaultConfig()
	for name, r := range map[string]SortingResult{
		"zero items":       {CorrectSorts: 0, TotalItems: 0},
		"negative correct": {CorrectSorts: -1, TotalItems: 5},
		"correct > total":  {CorrectSorts: 6, TotalItems: 5},
		"too many items":   {CorrectSorts: 1, TotalItems: cfg.SortingMaxItems + 1},
		"negative time":    {CorrectSorts: 1, TotalItems: 5, TimeTakenSeconds: -1},
	} {
		_, err := ScoreSorting(cfg, r)
		assert.True(t, shared.IsInvalidSubmission(err), name)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Determinism and decoding
// ─────────────────────────────────────────────────────────────────────────────

func TestEngine_Deterministic(t *testing.T) {
	e := NewEngine(DefaultConfig(), newBank())
	results := []GameResult{
		MemoryResult{Moves: 100, TimeTakenSeconds: 70, Level: 1},
		PuzzleResult{Theme: 2, SubLevel: 5, Moves: 70, TimeTakenSeconds: 150},
		SortingResult{CorrectSorts: 7, TotalItems: 9, TimeTakenSeconds: 61},
		QuizResult{Answers: []QuizAnswer{{QuestionID: 2, SelectedOption: 2}}, TimeTakenSeconds: 50},
	}
	for _, r := range results {
		a1, err := e.Score(context.Background(), r)
		require.NoError(t, err)
		a2, err := e.Score(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, a1, a2)
		assert.Equal(t, r.GameType(), a1.GameType)
	}
}

func TestEngine_NilResultRejected(t *testing.T) {
	e := NewEngine(DefaultConfig(), newBank())
	results := []GameResult{
		nil,
		(*QuizResult)(nil),
		(*MemoryResult)(nil),
		(*PuzzleResult)(nil),
		(*SortingResult)(nil),
	}
	for _, r := range results {
		var award *Award
		var err error
		require.NotPanics(t, func() { award, err = e.Score(context.Background(), r) })
		assert.Nil(t, award)
		assert.True(t, shared.IsInvalidSubmission(err), "%T", r)
	}
}

func TestEngine_PointerResultScored(t *testing.T) {
	e := NewEngine(DefaultConfig(), newBank())
	byValue, err := e.Score(context.Background(), MemoryResult{Moves: 100, TimeTakenSeconds: 70, Level: 1})
	require.NoError(t, err)
	byPointer, err := e.Score(context.Background(), &MemoryResult{Moves: 100, TimeTakenSeconds: 70, Level: 1})
	require.NoError(t, err)
	assert.Equal(t, byValue, byPointer)
}

func TestDecodeGameResult(t *testing.T) {
	r, err := DecodeGameResult(GameMemory, []byte(`{"moves":15,"timeTaken":50,"level":2}`))
	require.NoError(t, err)
	assert.Equal(t, MemoryResult{Moves: 15, TimeTakenSeconds: 50, Level: 2}, r)

	r, err = DecodeGameResult(GameQuiz, []byte(`{"answers":[{"questionId":3,"answer":1}],"timeTaken":20}`))
	require.NoError(t, err)
	assert.Equal(t, QuizResult{Answers: []QuizAnswer{{QuestionID: 3, SelectedOption: 1}}, TimeTakenSeconds: 20}, r)
}

func TestDecodeGameResult_Rejects(t *testing.T) {
	_, err := DecodeGameResult(GameSorting, []byte(`{"correctSorts":"x"}`))
	assert.True(t, shared.IsInvalidSubmission(err))

	_, err = DecodeGameResult(GameSorting, []byte(`{"correctSorts":1,"bogus":true}`))
	assert.True(t, shared.IsInvalidSubmission(err))

	_, err = DecodeGameResult(GameType("chess"), []byte(`{}`))
	assert.True(t, shared.IsInvalidSubmission(err))
}

func TestParseGameType(t *testing.T) {
	gt, err := ParseGameType(" Quiz ")
	assert.NoError(t, err)
	assert.Equal(t, GameQuiz, gt)

	_, err = ParseGameType("bonus")
	assert.True(t, shared.IsInvalidSubmission(err))
}
