// Package stats содержит агрегатор статистики KopiO: журнал начислений
// (ScoreRecord), сводку по пользователю (UserStats) и закон серии дней.
// Любое изменение очков пользователя проходит через UserStats.Apply,
// поэтому сумма подытогов всегда равна сумме записей журнала.
package stats

import (
	"encoding/json"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

const domain = "stats"

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY
// ══════════════════════════════════════════════════════════════════════════════

// Category - категория записи журнала: один из типов игр или бонус.
type Category string

const (
	CategoryQuiz    = Category(scoring.GameQuiz)
	CategoryMemory  = Category(scoring.GameMemory)
	CategoryPuzzle  = Category(scoring.GamePuzzle)
	CategorySorting = Category(scoring.GameSorting)

	// CategoryBonus - награды за ежедневные задания. Не влияют на серию.
	CategoryBonus Category = "bonus"
)

// AllCategories возвращает все категории в стабильном порядке.
func AllCategories() []Category {
	return []Category{CategoryQuiz, CategoryMemory, CategoryPuzzle, CategorySorting, CategoryBonus}
}

// IsValid проверяет, что категория известна.
func (c Category) IsValid() bool {
	return c == CategoryBonus || scoring.GameType(c).IsValid()
}

// IsGame возвращает true для категорий, соответствующих игре.
func (c Category) IsGame() bool {
	return c != CategoryBonus && c.IsValid()
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORE RECORD
// ══════════════════════════════════════════════════════════════════════════════

// ScoreRecord - неизменяемая запись журнала начислений.
// Создаётся ровно один раз на одну отправку результата.
type ScoreRecord struct {
	// ID - уникальный идентификатор записи (UUID).
	ID string

	// UserID - владелец записи.
	UserID string

	// Category - тип игры или бонус.
	Category Category

	// Points - начисленные очки, неотрицательные.
	Points int

	// PlayedAt - момент игры.
	PlayedAt time.Time

	// Details - диагностические данные игры. Движок их не интерпретирует.
	Details json.RawMessage

	// IdempotencyKey - клиентский токен отправки, уникален в пределах пользователя.
	IdempotencyKey string
}

// Validate проверяет запись перед вставкой.
func (r ScoreRecord) Validate() error {
	const op = "RecordScore"
	switch {
	case r.ID == "":
		return shared.InvalidSubmission(domain, op, "record id is required")
	case r.UserID == "":
		return shared.InvalidSubmission(domain, op, "user id is required")
	case !r.Category.IsValid():
		return shared.InvalidSubmission(domain, op, "unknown category %q", r.Category)
	case r.Points < 0:
		return shared.InvalidSubmission(domain, op, "points must not be negative")
	case r.PlayedAt.IsZero():
		return shared.InvalidSubmission(domain, op, "playedAt is required")
	case r.IdempotencyKey == "":
		return shared.InvalidSubmission(domain, op, "idempotency key is required")
	case len(r.IdempotencyKey) > MaxIdempotencyKeyLength:
		return shared.InvalidSubmission(domain, op, "idempotency key is too long")
	}
	return nil
}

// MaxIdempotencyKeyLength ограничивает длину клиентского токена.
const MaxIdempotencyKeyLength = 128

// ══════════════════════════════════════════════════════════════════════════════
// USER STATS
// ══════════════════════════════════════════════════════════════════════════════

// Tally - количество игр и сумма очков в одной категории.
type Tally struct {
	Count  int `json:"count"`
	Points int `json:"points"`
}

// UserStats - сводка по пользователю, одна строка на пользователя.
type UserStats struct {
	// UserID - пользователь, которому принадлежит сводка.
	UserID string

	// Quiz, Memory, Puzzle, Sorting - подытоги по играм.
	Quiz    Tally
	Memory  Tally
	Puzzle  Tally
	Sorting Tally

	// Bonus - подытог наград за задания.
	Bonus Tally

	// CurrentStreak - число подряд идущих дней с хотя бы одной игрой.
	CurrentStreak int

	// LastPlayedDate - календарная дата последней игры (полночь UTC,
	// см. timeutil.DateOf). Нулевое значение - пользователь ещё не играл.
	LastPlayedDate time.Time

	// UpdatedAt - время последнего изменения.
	UpdatedAt time.Time
}

// NewUserStats создаёт пустую сводку для нового пользователя.
func NewUserStats(userID string) *UserStats {
	return &UserStats{UserID: userID}
}

// Tally возвращает подытог категории.
func (s *UserStats) Tally(c Category) Tally {
	if t := s.tally(c); t != nil {
		return *t
	}
	return Tally{}
}

func (s *UserStats) tally(c Category) *Tally {
	switch c {
	case CategoryQuiz:
		return &s.Quiz
	case CategoryMemory:
		return &s.Memory
	case CategoryPuzzle:
		return &s.Puzzle
	case CategorySorting:
		return &s.Sorting
	case CategoryBonus:
		return &s.Bonus
	}
	return nil
}

// TotalPoints возвращает сумму всех подытогов.
// Всегда равна User.TotalPoints после фиксации транзакции.
func (s *UserStats) TotalPoints() int {
	total := 0
	for _, c := range AllCategories() {
		total += s.Tally(c).Points
	}
	return total
}

// GamesPlayed возвращает число сыгранных игр без учёта бонусов.
func (s *UserStats) GamesPlayed() int {
	return s.Quiz.Count + s.Memory.Count + s.Puzzle.Count + s.Sorting.Count
}

// Apply применяет запись к сводке. Это единственный способ изменить подытоги
// и серию. Для игровых записей действует закон серии:
//   - та же дата, что и последняя игра: серия не меняется;
//   - следующий день: серия +1;
//   - иначе (пропуск или первая игра): серия = 1.
//
// Запись с датой раньше последней игры учитывается в подытогах, но серию
// и LastPlayedDate не трогает.
func (s *UserStats) Apply(r ScoreRecord) error {
	t := s.tally(r.Category)
	if t == nil {
		return shared.InvalidSubmission(domain, "Apply", "unknown category %q", r.Category)
	}
	t.Count++
	t.Points += r.Points

	if r.Category.IsGame() {
		s.advanceStreak(timeutil.DateOf(r.PlayedAt))
	}
	s.UpdatedAt = r.PlayedAt
	return nil
}

func (s *UserStats) advanceStreak(played time.Time) {
	if s.LastPlayedDate.IsZero() {
		s.CurrentStreak = 1
		s.LastPlayedDate = played
		return
	}
	switch diff := timeutil.DateDiff(s.LastPlayedDate, played); {
	case diff == 0:
		if s.CurrentStreak == 0 {
			s.CurrentStreak = 1
		}
	case diff == 1:
		s.CurrentStreak++
		s.LastPlayedDate = played
	case diff > 1:
		s.CurrentStreak = 1
		s.LastPlayedDate = played
	}
}

// StreakOn возвращает серию, действующую на дату today: сохранённая серия
// обнуляется, если последняя игра была раньше, чем вчера.
func (s *UserStats) StreakOn(today time.Time) int {
	if s.LastPlayedDate.IsZero() {
		return 0
	}
	if timeutil.DateDiff(s.LastPlayedDate, timeutil.DateOf(today)) > 1 {
		return 0
	}
	return s.CurrentStreak
}

// Rebuild пересчитывает подытоги по полному журналу. Серия и дата последней
// игры не пересчитываются. Используется при сверке.
func Rebuild(userID string, records []ScoreRecord) *UserStats {
	s := NewUserStats(userID)
	for _, r := range records {
		if t := s.tally(r.Category); t != nil {
			t.Count++
			t.Points += r.Points
		}
	}
	return s
}

// SameTallies сравнивает подытоги двух сводок.
func SameTallies(a, b *UserStats) bool {
	for _, c := range AllCategories() {
		if a.Tally(c) != b.Tally(c) {
			return false
		}
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// OUTCOME
// ══════════════════════════════════════════════════════════════════════════════

// Outcome - результат зафиксированной записи.
type Outcome struct {
	// Record - вставленная запись.
	Record ScoreRecord

	// Stats - сводка после применения записи.
	Stats UserStats

	// TotalPoints - новый User.TotalPoints.
	TotalPoints int

	// FirstGameToday - запись стала первой игрой пользователя за календарный день.
	FirstGameToday bool

	// Bonus - бонус за первую игру дня, начисленный в той же транзакции; nil,
	// если игра не первая. Stats и TotalPoints уже включают его.
	Bonus *ScoreRecord
}
