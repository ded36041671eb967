package stats

import (
	"context"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE INTERFACE
// Реализации: infrastructure/persistence/postgres и .../memory.
// ══════════════════════════════════════════════════════════════════════════════

// Store - хранилище журнала начислений и сводок.
//
// Все операции записи атомарны: вставка записи, обновление UserStats,
// User.TotalPoints и серии выполняются в одной транзакции.
type Store interface {
	// ──────────────────────────────────────────────────────────────────────────
	// WRITE
	// ──────────────────────────────────────────────────────────────────────────

	// RecordScore вставляет запись и применяет её к сводке. Если это первая
	// игра пользователя за день, в той же транзакции начисляется FirstGameBonus.
	// Повтор (UserID, IdempotencyKey) возвращает shared.ErrDuplicateSubmission,
	// неизвестный пользователь - shared.ErrUserNotFound.
	RecordScore(ctx context.Context, rec ScoreRecord) (*Outcome, error)

	// ClaimChallenge отмечает задание на дату `at` и начисляет награду
	// записью категории bonus. recordID - идентификатор новой записи.
	ClaimChallenge(ctx context.Context, recordID, userID string, c Challenge, at time.Time) (*Outcome, error)

	// ReconcileTotals пересчитывает подытоги и User.TotalPoints по журналу.
	// Возвращает число исправленных пользователей.
	ReconcileTotals(ctx context.Context) (int, error)

	// ──────────────────────────────────────────────────────────────────────────
	// READ
	// ──────────────────────────────────────────────────────────────────────────

	// GetStats возвращает сводку пользователя.
	GetStats(ctx context.Context, userID string) (*UserStats, error)

	// GetDailyChallenge возвращает прогресс за дату; пустую строку, если её нет.
	GetDailyChallenge(ctx context.Context, userID string, date time.Time) (*DailyChallenge, error)

	// RecentRecords возвращает последние записи пользователя, новые первыми.
	RecentRecords(ctx context.Context, userID string, limit int) ([]ScoreRecord, error)

	// RecordsSince возвращает записи пользователя начиная с момента since.
	RecordsSince(ctx context.Context, userID string, since time.Time) ([]ScoreRecord, error)

	// GameSummaries возвращает лучший и средний результат по каждой игре.
	GameSummaries(ctx context.Context, userID string) (map[Category]GameSummary, error)

	// PlatformTotals возвращает агрегаты по платформе; since - начало окна
	// для регистраций и активных пользователей.
	PlatformTotals(ctx context.Context, since time.Time) (*PlatformTotals, error)
}

// GameSummary - лучший и средний результат пользователя в одной игре.
type GameSummary struct {
	Count   int     `json:"count"`
	Best    int     `json:"best"`
	Average float64 `json:"average"`
}

// DayPoints - очки пользователя за календарный день.
type DayPoints struct {
	Date        time.Time `json:"date"`
	Points      int       `json:"points"`
	GamesPlayed int       `json:"gamesPlayed"`
}

// PlatformTotals - агрегаты для панели администратора.
type PlatformTotals struct {
	Students      int
	Admins        int
	TotalPoints   int
	TotalGames    int
	GamesByType   map[Category]int
	RecentSignups int
	ActiveUsers   int

	// FacultyPoints - сумма очков студентов по коду факультета.
	FacultyPoints map[string]int
}

// AveragePointsPerStudent возвращает среднее очков на студента, 0 без студентов.
func (p *PlatformTotals) AveragePointsPerStudent() float64 {
	if p.Students == 0 {
		return 0
	}
	return float64(p.TotalPoints) / float64(p.Students)
}

// DailyPoints раскладывает записи по последним n календарным дням,
// от старых к новым. Дни без записей присутствуют с нулями.
func DailyPoints(records []ScoreRecord, now time.Time, n int) []DayPoints {
	dates := timeutil.LastNDates(now, n)
	out := make([]DayPoints, len(dates))
	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		out[i] = DayPoints{Date: d}
		index[d] = i
	}
	for _, r := range records {
		i, ok := index[timeutil.DateOf(r.PlayedAt)]
		if !ok {
			continue
		}
		out[i].Points += r.Points
		if r.Category.IsGame() {
			out[i].GamesPlayed++
		}
	}
	return out
}
