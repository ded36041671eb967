package query

import (
	"context"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET QUIZ QUESTIONS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// QuizQuestionDTO is a question without its answer.
type QuizQuestionDTO struct {
	ID         int64     `json:"id"`
	Question   string    `json:"question"`
	Options    [4]string `json:"options"`
	Difficulty string    `json:"difficulty,omitempty"`
}

// QuizQuestionsDTO is a quiz round.
type QuizQuestionsDTO struct {
	Questions        []QuizQuestionDTO `json:"questions"`
	TimeLimitSeconds int               `json:"timeLimit"`
}

// GetQuizQuestionsHandler samples a quiz round from the question bank.
type GetQuizQuestionsHandler struct {
	bank scoring.QuestionBank
	cfg  scoring.Config
}

// NewGetQuizQuestionsHandler creates a new GetQuizQuestionsHandler.
func NewGetQuizQuestionsHandler(bank scoring.QuestionBank, cfg scoring.Config) *GetQuizQuestionsHandler {
	return &GetQuizQuestionsHandler{bank: bank, cfg: cfg}
}

// Handle returns up to count random questions; count <= 0 means the
// default round size. The correct option is never included.
func (h *GetQuizQuestionsHandler) Handle(ctx context.Context, count int) (*QuizQuestionsDTO, error) {
	if count <= 0 {
		count = h.cfg.QuizQuestionsPerGame
	}
	if h.cfg.QuizMaxAnswers > 0 && count > h.cfg.QuizMaxAnswers {
		count = h.cfg.QuizMaxAnswers
	}

	questions, err := h.bank.Sample(ctx, count)
	if err != nil {
		return nil, err
	}
	out := &QuizQuestionsDTO{
		Questions:        make([]QuizQuestionDTO, 0, len(questions)),
		TimeLimitSeconds: h.cfg.QuizTimeLimitSeconds,
	}
	for _, q := range questions {
		out.Questions = append(out.Questions, QuizQuestionDTO{
			ID:         q.ID,
			Question:   q.Text,
			Options:    q.Options,
			Difficulty: q.Difficulty,
		})
	}
	return out, nil
}
