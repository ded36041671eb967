package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StatsStore implements stats.Store for PostgreSQL.
//
// Every write locks the user's user_stats row with SELECT ... FOR UPDATE
// before reading it, so the streak law and the running totals are applied
// to the latest committed state.
type StatsStore struct {
	conn *Connection
}

// NewStatsStore creates a new StatsStore.
func NewStatsStore(conn *Connection) *StatsStore {
	return &StatsStore{conn: conn}
}

const statsColumns = `
	user_id,
	quiz_count, quiz_points, memory_count, memory_points,
	puzzle_count, puzzle_points, sorting_count, sorting_points,
	bonus_count, bonus_points,
	current_streak, last_played_date, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

// RecordScore inserts the record and applies it to the user's rollups.
func (s *StatsStore) RecordScore(ctx context.Context, rec stats.ScoreRecord) (*stats.Outcome, error) {
	const op = "RecordScore"
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	var out *stats.Outcome
	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		current, err := lockStats(ctx, tx, rec.UserID)
		if err != nil {
			return err
		}
		out, err = applyRecord(ctx, tx, current, rec)
		if err != nil || !out.FirstGameToday {
			return err
		}
		out, err = creditFirstGame(ctx, tx, out)
		return err
	})
	if err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

// creditFirstGame claims the first game bonus inside the transaction that
// recorded the game, so the game_played flag never commits without it.
func creditFirstGame(ctx context.Context, tx pgx.Tx, game *stats.Outcome) (*stats.Outcome, error) {
	dc, err := loadChallenge(ctx, tx, game.Record.UserID, timeutil.DateOf(game.Record.PlayedAt), true)
	if err != nil {
		return nil, err
	}
	if err := dc.Claim(stats.ChallengeFirstGame, &game.Stats); err != nil {
		return nil, err
	}

	bonus := stats.FirstGameBonus(game.Record)
	after, err := applyRecord(ctx, tx, &game.Stats, bonus)
	if err != nil {
		return nil, err
	}
	if err := saveChallenge(ctx, tx, dc); err != nil {
		return nil, err
	}

	return &stats.Outcome{
		Record:         game.Record,
		Stats:          after.Stats,
		TotalPoints:    after.TotalPoints,
		FirstGameToday: true,
		Bonus:          &bonus,
	}, nil
}

// ClaimChallenge marks the challenge and credits its reward.
func (s *StatsStore) ClaimChallenge(ctx context.Context, recordID, userID string, c stats.Challenge, at time.Time) (*stats.Outcome, error) {
	const op = "ClaimChallenge"

	var out *stats.Outcome
	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		current, err := lockStats(ctx, tx, userID)
		if err != nil {
			return err
		}
		dc, err := loadChallenge(ctx, tx, userID, timeutil.DateOf(at), true)
		if err != nil {
			return err
		}
		if err := dc.Claim(c, current); err != nil {
			return err
		}
		out, err = applyRecord(ctx, tx, current, stats.BonusRecord(recordID, userID, c, at))
		if err != nil {
			return err
		}
		return saveChallenge(ctx, tx, dc)
	})
	if err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

// applyRecord performs the aggregator transition inside tx. current must be
// the locked rollup row of rec.UserID.
func applyRecord(ctx context.Context, tx pgx.Tx, current *stats.UserStats, rec stats.ScoreRecord) (*stats.Outcome, error) {
	next := *current
	if err := next.Apply(rec); err != nil {
		return nil, err
	}

	var details []byte
	if len(rec.Details) > 0 {
		details = rec.Details
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO score_records (id, user_id, category, points, played_at, details, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.UserID, string(rec.Category), rec.Points, rec.PlayedAt, details, rec.IdempotencyKey); err != nil {
		return nil, err
	}

	first := false
	if rec.Category.IsGame() {
		dc, err := loadChallenge(ctx, tx, rec.UserID, timeutil.DateOf(rec.PlayedAt), true)
		if err != nil {
			return nil, err
		}
		first = !dc.GamePlayed
		dc.GamePlayed = true
		if err := saveChallenge(ctx, tx, dc); err != nil {
			return nil, err
		}
	}

	next.UpdatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE user_stats SET
			quiz_count = $2, quiz_points = $3,
			memory_count = $4, memory_points = $5,
			puzzle_count = $6, puzzle_points = $7,
			sorting_count = $8, sorting_points = $9,
			bonus_count = $10, bonus_points = $11,
			current_streak = $12, last_played_date = $13, updated_at = $14
		WHERE user_id = $1
	`,
		next.UserID,
		next.Quiz.Count, next.Quiz.Points,
		next.Memory.Count, next.Memory.Points,
		next.Puzzle.Count, next.Puzzle.Points,
		next.Sorting.Count, next.Sorting.Points,
		next.Bonus.Count, next.Bonus.Points,
		next.CurrentStreak, nullDate(next.LastPlayedDate), next.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var total int
	if err := tx.QueryRow(ctx, `
		UPDATE users SET
			total_points = total_points + $2,
			current_streak = $3,
			updated_at = $4
		WHERE id = $1
		RETURNING total_points
	`, rec.UserID, rec.Points, next.CurrentStreak, next.UpdatedAt).Scan(&total); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, err
	}

	return &stats.Outcome{
		Record:         rec,
		Stats:          next,
		TotalPoints:    total,
		FirstGameToday: first,
	}, nil
}

// lockStats reads and row-locks the rollup of userID.
func lockStats(ctx context.Context, tx pgx.Tx, userID string) (*stats.UserStats, error) {
	row := tx.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1 FOR UPDATE`, userID)
	st, err := scanStats(row)
	if IsNoRows(err) {
		return nil, shared.ErrUserNotFound
	}
	return st, err
}

// loadChallenge returns the stored row for date or a fresh, unsaved one.
func loadChallenge(ctx context.Context, q Querier, userID string, date time.Time, forUpdate bool) (*stats.DailyChallenge, error) {
	sql := `
		SELECT daily_login_claimed, game_played, first_game_claimed, weekly_streak_claimed
		FROM daily_challenges
		WHERE user_id = $1 AND challenge_date = $2`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	dc := stats.NewDailyChallenge(userID, date)
	err := q.QueryRow(ctx, sql, userID, dc.Date).Scan(
		&dc.DailyLoginClaimed, &dc.GamePlayed, &dc.FirstGameClaimed, &dc.WeeklyStreakClaimed,
	)
	if err != nil && !IsNoRows(err) {
		return nil, err
	}
	return dc, nil
}

// saveChallenge upserts the flags. Set flags are never cleared.
func saveChallenge(ctx context.Context, tx pgx.Tx, dc *stats.DailyChallenge) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO daily_challenges (
			user_id, challenge_date,
			daily_login_claimed, game_played, first_game_claimed, weekly_streak_claimed
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, challenge_date) DO UPDATE SET
			daily_login_claimed = daily_challenges.daily_login_claimed OR EXCLUDED.daily_login_claimed,
			game_played = daily_challenges.game_played OR EXCLUDED.game_played,
			first_game_claimed = daily_challenges.first_game_claimed OR EXCLUDED.first_game_claimed,
			weekly_streak_claimed = daily_challenges.weekly_streak_claimed OR EXCLUDED.weekly_streak_claimed
	`, dc.UserID, dc.Date, dc.DailyLoginClaimed, dc.GamePlayed, dc.FirstGameClaimed, dc.WeeklyStreakClaimed)
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Reconciliation
// ─────────────────────────────────────────────────────────────────────────────

// reconcileSQL rebuilds every tally from score_records and corrects rows
// that drifted. Streaks are left untouched.
const reconcileSQL = `
	WITH totals AS (
		SELECT u.id AS user_id,
			COUNT(r.id) FILTER (WHERE r.category = 'quiz') AS quiz_count,
			COALESCE(SUM(r.points) FILTER (WHERE r.category = 'quiz'), 0) AS quiz_points,
			COUNT(r.id) FILTER (WHERE r.category = 'memory') AS memory_count,
			COALESCE(SUM(r.points) FILTER (WHERE r.category = 'memory'), 0) AS memory_points,
			COUNT(r.id) FILTER (WHERE r.category = 'puzzle') AS puzzle_count,
			COALESCE(SUM(r.points) FILTER (WHERE r.category = 'puzzle'), 0) AS puzzle_points,
			COUNT(r.id) FILTER (WHERE r.category = 'sorting') AS sorting_count,
			COALESCE(SUM(r.points) FILTER (WHERE r.category = 'sorting'), 0) AS sorting_points,
			COUNT(r.id) FILTER (WHERE r.category = 'bonus') AS bonus_count,
			COALESCE(SUM(r.points) FILTER (WHERE r.category = 'bonus'), 0) AS bonus_points,
			COALESCE(SUM(r.points), 0) AS total_points
		FROM users u
		LEFT JOIN score_records r ON r.user_id = u.id
		GROUP BY u.id
	),
	fixed_stats AS (
		UPDATE user_stats s SET
			quiz_count = t.quiz_count, quiz_points = t.quiz_points,
			memory_count = t.memory_count, memory_points = t.memory_points,
			puzzle_count = t.puzzle_count, puzzle_points = t.puzzle_points,
			sorting_count = t.sorting_count, sorting_points = t.sorting_points,
			bonus_count = t.bonus_count, bonus_points = t.bonus_points,
			updated_at = NOW()
		FROM totals t
		WHERE s.user_id = t.user_id
		  AND (s.quiz_count, s.quiz_points, s.memory_count, s.memory_points,
		       s.puzzle_count, s.puzzle_points, s.sorting_count, s.sorting_points,
		       s.bonus_count, s.bonus_points)
		      IS DISTINCT FROM
		      (t.quiz_count, t.quiz_points, t.memory_count, t.memory_points,
		       t.puzzle_count, t.puzzle_points, t.sorting_count, t.sorting_points,
		       t.bonus_count, t.bonus_points)
		RETURNING s.user_id
	),
	fixed_users AS (
		UPDATE users u SET total_points = t.total_points, updated_at = NOW()
		FROM totals t
		WHERE u.id = t.user_id AND u.total_points <> t.total_points
		RETURNING u.id AS user_id
	)
	SELECT COUNT(*) FROM (
		SELECT user_id FROM fixed_stats
		UNION
		SELECT user_id FROM fixed_users
	) fixed`

// ReconcileTotals rebuilds every rollup from the record log. The table
// lock makes concurrent RecordScore calls wait until it commits.
func (s *StatsStore) ReconcileTotals(ctx context.Context) (int, error) {
	const op = "ReconcileTotals"

	var fixed int
	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE user_stats IN EXCLUSIVE MODE`); err != nil {
			return err
		}
		return tx.QueryRow(ctx, reconcileSQL).Scan(&fixed)
	})
	if err != nil {
		return 0, storeError(op, err)
	}
	return fixed, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// GetStats returns the rollup row.
func (s *StatsStore) GetStats(ctx context.Context, userID string) (*stats.UserStats, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1`, userID)
	st, err := scanStats(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, storeError("GetStats", err)
	}
	return st, nil
}

// GetDailyChallenge returns the progress row for date.
func (s *StatsStore) GetDailyChallenge(ctx context.Context, userID string, date time.Time) (*stats.DailyChallenge, error) {
	const op = "GetDailyChallenge"

	exists, err := userExists(ctx, s.conn, userID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if !exists {
		return nil, shared.ErrUserNotFound
	}
	dc, err := loadChallenge(ctx, s.conn, userID, timeutil.DateOf(date), false)
	if err != nil {
		return nil, storeError(op, err)
	}
	return dc, nil
}

// RecentRecords returns the newest records first. limit <= 0 returns all.
func (s *StatsStore) RecentRecords(ctx context.Context, userID string, limit int) ([]stats.ScoreRecord, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	return s.queryRecords(ctx, "RecentRecords", `
		SELECT id, user_id, category, points, played_at, details, idempotency_key
		FROM score_records
		WHERE user_id = $1
		ORDER BY played_at DESC, created_at DESC
		LIMIT $2
	`, userID, lim)
}

// RecordsSince returns records played at or after since, newest first.
func (s *StatsStore) RecordsSince(ctx context.Context, userID string, since time.Time) ([]stats.ScoreRecord, error) {
	return s.queryRecords(ctx, "RecordsSince", `
		SELECT id, user_id, category, points, played_at, details, idempotency_key
		FROM score_records
		WHERE user_id = $1 AND played_at >= $2
		ORDER BY played_at DESC, created_at DESC
	`, userID, since)
}

func (s *StatsStore) queryRecords(ctx context.Context, op, sql string, args ...any) ([]stats.ScoreRecord, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	out := make([]stats.ScoreRecord, 0)
	for rows.Next() {
		var (
			rec      stats.ScoreRecord
			category string
			details  []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &category, &rec.Points, &rec.PlayedAt, &details, &rec.IdempotencyKey); err != nil {
			return nil, storeError(op, err)
		}
		rec.Category = stats.Category(category)
		rec.Details = details
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

// GameSummaries returns best and average points per played game type.
func (s *StatsStore) GameSummaries(ctx context.Context, userID string) (map[stats.Category]stats.GameSummary, error) {
	const op = "GameSummaries"

	rows, err := s.conn.Query(ctx, `
		SELECT category, COUNT(*), MAX(points), ROUND(AVG(points)::numeric, 1)::float8
		FROM score_records
		WHERE user_id = $1 AND category <> 'bonus'
		GROUP BY category
	`, userID)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	out := make(map[stats.Category]stats.GameSummary)
	for rows.Next() {
		var (
			category string
			g        stats.GameSummary
		)
		if err := rows.Scan(&category, &g.Count, &g.Best, &g.Average); err != nil {
			return nil, storeError(op, err)
		}
		out[stats.Category(category)] = g
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

// PlatformTotals aggregates over all users from one snapshot.
func (s *StatsStore) PlatformTotals(ctx context.Context, since time.Time) (*stats.PlatformTotals, error) {
	const op = "PlatformTotals"

	p := &stats.PlatformTotals{
		GamesByType:   make(map[stats.Category]int),
		FacultyPoints: make(map[string]int),
	}
	err := s.conn.WithTx(ctx, SnapshotTxOptions(), func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (WHERE role <> 'admin'),
				COUNT(*) FILTER (WHERE role = 'admin'),
				COALESCE(SUM(total_points) FILTER (WHERE role <> 'admin'), 0),
				COUNT(*) FILTER (WHERE created_at >= $1)
			FROM users
		`, since).Scan(&p.Students, &p.Admins, &p.TotalPoints, &p.RecentSignups); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `
			SELECT COUNT(DISTINCT user_id)
			FROM score_records
			WHERE category <> 'bonus' AND played_at >= $1
		`, since).Scan(&p.ActiveUsers); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			SELECT category, COUNT(*) FROM score_records
			WHERE category <> 'bonus'
			GROUP BY category
		`)
		if err != nil {
			return err
		}
		for rows.Next() {
			var (
				category string
				n        int
			)
			if err := rows.Scan(&category, &n); err != nil {
				rows.Close()
				return err
			}
			p.GamesByType[stats.Category(category)] = n
			p.TotalGames += n
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `
			SELECT faculty, SUM(total_points) FROM users
			WHERE role = 'student'
			GROUP BY faculty
		`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				faculty string
				points  int
			)
			if err := rows.Scan(&faculty, &points); err != nil {
				return err
			}
			p.FacultyPoints[faculty] = points
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storeError(op, err)
	}
	return p, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanStats(row pgx.Row) (*stats.UserStats, error) {
	var (
		st         stats.UserStats
		lastPlayed *time.Time
	)
	err := row.Scan(
		&st.UserID,
		&st.Quiz.Count, &st.Quiz.Points,
		&st.Memory.Count, &st.Memory.Points,
		&st.Puzzle.Count, &st.Puzzle.Points,
		&st.Sorting.Count, &st.Sorting.Points,
		&st.Bonus.Count, &st.Bonus.Points,
		&st.CurrentStreak, &lastPlayed, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastPlayed != nil {
		st.LastPlayedDate = asDate(*lastPlayed)
	}
	return &st, nil
}

// asDate normalizes a scanned DATE value to midnight UTC, the encoding
// produced by timeutil.DateOf.
func asDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// nullDate maps the zero time to SQL NULL.
func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
