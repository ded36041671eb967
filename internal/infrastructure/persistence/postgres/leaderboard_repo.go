package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository реализует leaderboard.Repository для PostgreSQL.
// Рейтинг не хранится отдельно: ранги вычисляются оконной функцией по
// таблице users при каждом чтении.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository создаёт новый LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

// rankOrder - порядок рейтинга: очки, затем дата регистрации, затем ID.
const rankOrder = `u.total_points DESC, u.created_at ASC, u.id ASC`

// entryColumns - колонки строки рейтинга; дата последней игры берётся из
// user_stats, чтобы показывать серию на текущую дату.
const entryColumns = `u.id, u.first_name, u.last_name, u.faculty, u.total_points, u.current_streak,
	u.created_at, s.last_played_date`

// studentsFrom - студенты вместе с их подытогами.
const studentsFrom = `
		FROM users u
		LEFT JOIN user_stats s ON s.user_id = u.id
		WHERE u.role = 'student'`

// rankedUsersSQL строит выборку студентов с глобальным рангом.
// С byFaculty ранг считается внутри факультета ($1).
func rankedUsersSQL(byFaculty bool) string {
	var b strings.Builder
	b.WriteString(`
		SELECT ` + entryColumns + `,
			ROW_NUMBER() OVER (ORDER BY ` + rankOrder + `) AS rank` + studentsFrom)
	if byFaculty {
		b.WriteString(` AND u.faculty = $1`)
	}
	return b.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// PAGE
// ─────────────────────────────────────────────────────────────────────────────

// Page возвращает страницу рейтинга. Подсчёт и выборка выполняются в одном
// снимке, чтобы Total соответствовал строкам страницы.
func (r *LeaderboardRepository) Page(ctx context.Context, q leaderboard.Query) (*leaderboard.Page, error) {
	const op = "LeaderboardPage"

	page := &leaderboard.Page{Entries: []leaderboard.Entry{}, Page: q.Page, PageSize: q.PageSize}
	if q.UnknownFaculty {
		return page, nil
	}

	byFaculty := q.Faculty != ""
	var args []any
	countSQL := `SELECT COUNT(*) FROM users WHERE role = 'student'`
	if byFaculty {
		args = append(args, string(q.Faculty))
		countSQL += ` AND faculty = $1`
	}
	n := len(args)
	pageSQL := `SELECT * FROM (` + rankedUsersSQL(byFaculty) + `) ranked
		ORDER BY rank
		LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)

	err := r.conn.WithTx(ctx, SnapshotTxOptions(), func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, countSQL, args...).Scan(&page.Total); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, pageSQL, append(args, q.PageSize, q.Offset())...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			page.Entries = append(page.Entries, *e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storeError(op, err)
	}
	return page, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// POSITION
// ─────────────────────────────────────────────────────────────────────────────

const positionSQL = `
	WITH ranked AS (
		SELECT ` + entryColumns + `,
			ROW_NUMBER() OVER (ORDER BY ` + rankOrder + `) AS global_rank,
			ROW_NUMBER() OVER (PARTITION BY u.faculty ORDER BY ` + rankOrder + `) AS faculty_rank,
			COUNT(*) OVER () AS total` + studentsFrom + `
	)
	SELECT id, first_name, last_name, faculty, total_points, current_streak, created_at,
		last_played_date, global_rank, faculty_rank, total
	FROM ranked
	WHERE id = $1`

// Position возвращает глобальный ранг и ранг в факультете.
func (r *LeaderboardRepository) Position(ctx context.Context, userID string) (*leaderboard.Position, error) {
	const op = "LeaderboardPosition"

	var (
		pos         leaderboard.Position
		faculty     string
		globalRank  int64
		facultyRank int64
		total       int64
		lastPlayed  *time.Time
	)
	e := &pos.Entry
	err := r.conn.QueryRow(ctx, positionSQL, userID).Scan(
		&e.UserID, &e.FirstName, &e.LastName, &faculty, &e.TotalPoints, &e.CurrentStreak, &e.CreatedAt,
		&lastPlayed, &globalRank, &facultyRank, &total,
	)
	if IsNoRows(err) {
		exists, err := userExists(ctx, r.conn, userID)
		if err != nil {
			return nil, storeError(op, err)
		}
		if exists {
			return nil, shared.ErrNotRanked
		}
		return nil, shared.ErrUserNotFound
	}
	if err != nil {
		return nil, storeError(op, err)
	}

	e.Faculty = user.Faculty(faculty)
	e.LastPlayedDate = formatLastPlayed(lastPlayed)
	e.Rank = leaderboard.Rank(globalRank)
	pos.GlobalRank = leaderboard.Rank(globalRank)
	pos.FacultyRank = leaderboard.Rank(facultyRank)
	pos.Total = int(total)
	return &pos, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// SEARCH
// ─────────────────────────────────────────────────────────────────────────────

const searchSQL = `
	WITH ranked AS (
		SELECT ` + entryColumns + `, u.email,
			ROW_NUMBER() OVER (ORDER BY ` + rankOrder + `) AS rank` + studentsFrom + `
	)
	SELECT id, first_name, last_name, faculty, total_points, current_streak, created_at,
		last_played_date, rank
	FROM ranked
	WHERE TRIM(first_name || ' ' || last_name) ILIKE $1 OR email ILIKE $1
	ORDER BY rank
	LIMIT $2`

// Search ищет студентов по имени и e-mail; ранги глобальные.
func (r *LeaderboardRepository) Search(ctx context.Context, term string, limit int) ([]leaderboard.Entry, error) {
	const op = "LeaderboardSearch"

	rows, err := r.conn.Query(ctx, searchSQL, "%"+escapeLike(term)+"%", limit)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	out := make([]leaderboard.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storeError(op, err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// HELPERS
// ─────────────────────────────────────────────────────────────────────────────

func scanEntry(row pgx.Row) (*leaderboard.Entry, error) {
	var (
		e          leaderboard.Entry
		faculty    string
		rank       int64
		lastPlayed *time.Time
	)
	if err := row.Scan(
		&e.UserID, &e.FirstName, &e.LastName, &faculty, &e.TotalPoints, &e.CurrentStreak, &e.CreatedAt,
		&lastPlayed, &rank,
	); err != nil {
		return nil, err
	}
	e.Faculty = user.Faculty(faculty)
	e.LastPlayedDate = formatLastPlayed(lastPlayed)
	e.Rank = leaderboard.Rank(rank)
	return &e, nil
}

// formatLastPlayed форматирует nullable DATE; NULL - пустая строка.
func formatLastPlayed(d *time.Time) string {
	if d == nil {
		return ""
	}
	return timeutil.FormatDate(asDate(*d))
}

// escapeLike экранирует спецсимволы шаблона LIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
