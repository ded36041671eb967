package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION BANK IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// QuestionBank implements scoring.QuestionBank over the quiz_questions table.
type QuestionBank struct {
	conn *Connection
}

// NewQuestionBank creates a new QuestionBank.
func NewQuestionBank(conn *Connection) *QuestionBank {
	return &QuestionBank{conn: conn}
}

const questionColumns = `id, question, option_a, option_b, option_c, option_d, correct_option, fact, difficulty`

// AnswerKey returns the questions with the given ids.
func (b *QuestionBank) AnswerKey(ctx context.Context, ids []int64) (map[int64]scoring.Question, error) {
	const op = "AnswerKey"

	out := make(map[int64]scoring.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := b.conn.Query(ctx, `SELECT `+questionColumns+` FROM quiz_questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, storeError(op, err)
		}
		out[q.ID] = *q
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

// Sample returns up to n random questions.
func (b *QuestionBank) Sample(ctx context.Context, n int) ([]scoring.Question, error) {
	const op = "SampleQuestions"

	out := make([]scoring.Question, 0, max(n, 0))
	if n <= 0 {
		return out, nil
	}
	rows, err := b.conn.Query(ctx, `SELECT `+questionColumns+` FROM quiz_questions ORDER BY random() LIMIT $1`, n)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, storeError(op, err)
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

// Seed loads qs into an empty table and returns the number inserted.
// A table that already holds questions is left alone.
func (b *QuestionBank) Seed(ctx context.Context, qs []scoring.Question) (int, error) {
	const op = "SeedQuestions"

	inserted := 0
	err := b.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE quiz_questions IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}
		var existing int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM quiz_questions`).Scan(&existing); err != nil {
			return err
		}
		if existing > 0 || len(qs) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, q := range qs {
			batch.Queue(`
				INSERT INTO quiz_questions (`+questionColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, q.ID, q.Text, q.Options[0], q.Options[1], q.Options[2], q.Options[3], q.CorrectOption, q.Fact, q.Difficulty)
		}
		br := tx.SendBatch(ctx, batch)
		for range qs {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return err
			}
			inserted++
		}
		if err := br.Close(); err != nil {
			return err
		}

		// Keep BIGSERIAL ahead of the explicit ids.
		_, err := tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence('quiz_questions', 'id'), (SELECT MAX(id) FROM quiz_questions))`)
		return err
	})
	if err != nil {
		return 0, storeError(op, err)
	}
	return inserted, nil
}

func scanQuestion(row pgx.Row) (*scoring.Question, error) {
	var (
		q       scoring.Question
		correct int16
	)
	if err := row.Scan(
		&q.ID, &q.Text, &q.Options[0], &q.Options[1], &q.Options[2], &q.Options[3], &correct, &q.Fact, &q.Difficulty,
	); err != nil {
		return nil, err
	}
	q.CorrectOption = int(correct)
	return &q, nil
}
