// Package leaderboard содержит доменную модель рейтинга KopiO.
// Рейтинг не хранится: он выводится из User.TotalPoints по детерминированному
// порядку (очки по убыванию, затем более ранняя регистрация, затем ID),
// поэтому одинаковые запросы без записей между ними дают одинаковый ответ.
package leaderboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

const domain = "leaderboard"

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию студента в рейтинге. Начинается с 1.
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// IsTop10 возвращает true, если студент в топ-10.
func (r Rank) IsTop10() bool {
	return r >= 1 && r <= 10
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна строка рейтинга.
type Entry struct {
	// Rank - глобальная позиция (или позиция внутри факультета для
	// отфильтрованного рейтинга).
	Rank Rank `json:"rank"`

	// UserID - идентификатор пользователя.
	UserID string `json:"userId"`

	// FirstName, LastName - имя для отображения.
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`

	// Faculty - код факультета.
	Faculty user.Faculty `json:"faculty"`

	// TotalPoints - сумма очков.
	TotalPoints int `json:"totalPoints"`

	// CurrentStreak - текущая серия дней.
	CurrentStreak int `json:"currentStreak"`

	// LastPlayedDate - дата последней игры (YYYY-MM-DD), пусто без игр.
	LastPlayedDate string `json:"lastPlayedDate,omitempty"`

	// CreatedAt - время регистрации, используется для разрешения ничьих.
	CreatedAt time.Time `json:"-"`
}

// DisplayName возвращает "Имя Фамилия".
func (e *Entry) DisplayName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// StreakOn возвращает серию, видимую на дату today. Пропущенный день
// обрывает серию, даже если хранилище ещё не сбросило счётчик.
func (e *Entry) StreakOn(today time.Time) int {
	if e.LastPlayedDate == "" {
		return 0
	}
	last, err := timeutil.ParseDate(e.LastPlayedDate)
	if err != nil || timeutil.DateDiff(last, timeutil.DateOf(today)) > 1 {
		return 0
	}
	return e.CurrentStreak
}

// WithStreaksOn возвращает копию строк с сериями на дату today.
func WithStreaksOn(entries []Entry, today time.Time) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.CurrentStreak = e.StreakOn(today)
		out[i] = e
	}
	return out
}

// String возвращает строковое представление для логирования.
func (e *Entry) String() string {
	return fmt.Sprintf("Entry{Rank: %d, User: %s, Points: %d}", e.Rank, e.UserID, e.TotalPoints)
}

// Less задаёт порядок рейтинга: очки по убыванию, при равенстве раньше
// зарегистрированный выше, при полном совпадении - по ID.
func Less(a, b *Entry) bool {
	if a.TotalPoints != b.TotalPoints {
		return a.TotalPoints > b.TotalPoints
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.UserID < b.UserID
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING (Ranked List)
// ══════════════════════════════════════════════════════════════════════════════

// Ranking - полный отсортированный список студентов.
// Вспомогательная структура для хранилищ без SQL.
type Ranking struct {
	entries []*Entry
	byID    map[string]int
}

// NewRanking сортирует записи и присваивает различные ранги подряд.
func NewRanking(entries []*Entry) *Ranking {
	sorted := make([]*Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return Less(sorted[i], sorted[j]) })

	r := &Ranking{entries: sorted, byID: make(map[string]int, len(sorted))}
	for i, e := range sorted {
		e.Rank = Rank(i + 1)
		r.byID[e.UserID] = i
	}
	return r
}

// Len возвращает число студентов в рейтинге.
func (r *Ranking) Len() int {
	return len(r.entries)
}

// Get возвращает запись по ID пользователя.
func (r *Ranking) Get(userID string) (*Entry, bool) {
	i, ok := r.byID[userID]
	if !ok {
		return nil, false
	}
	return r.entries[i], true
}

// Slice возвращает копии записей [from:to).
func (r *Ranking) Slice(from, to int) []Entry {
	if from < 0 {
		from = 0
	}
	if to > len(r.entries) {
		to = len(r.entries)
	}
	if from >= to {
		return []Entry{}
	}
	out := make([]Entry, 0, to-from)
	for _, e := range r.entries[from:to] {
		out = append(out, *e)
	}
	return out
}

// Filter возвращает новый Ranking с записями, удовлетворяющими условию.
// Ранги пересчитываются внутри выборки.
func (r *Ranking) Filter(keep func(*Entry) bool) *Ranking {
	kept := make([]*Entry, 0)
	for _, e := range r.entries {
		if keep(e) {
			c := *e
			kept = append(kept, &c)
		}
	}
	return NewRanking(kept)
}

// Page возвращает страницу рейтинга по запросу.
func (r *Ranking) Page(q Query) *Page {
	if q.UnknownFaculty {
		return &Page{Entries: []Entry{}, Page: q.Page, PageSize: q.PageSize}
	}
	source := r
	if q.Faculty != "" {
		source = r.Filter(func(e *Entry) bool { return e.Faculty == q.Faculty })
	}
	return &Page{
		Entries:  source.Slice(q.Offset(), q.Offset()+q.PageSize),
		Total:    source.Len(),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
}

// Search возвращает до limit записей с глобальными рангами, у которых имя
// или e-mail содержит term без учёта регистра. emails - e-mail по ID.
func (r *Ranking) Search(term string, emails map[string]string, limit int) []Entry {
	term = strings.ToLower(term)
	out := make([]Entry, 0)
	for _, e := range r.entries {
		if len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(e.DisplayName()), term) ||
			strings.Contains(strings.ToLower(emails[e.UserID]), term) {
			out = append(out, *e)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// PAGE
// ══════════════════════════════════════════════════════════════════════════════

// Page - страница рейтинга с общим числом строк.
type Page struct {
	Entries  []Entry `json:"entries"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// HasMore возвращает true, если за этой страницей есть ещё строки.
func (p *Page) HasMore() bool {
	return p.Page*p.PageSize < p.Total
}

// ══════════════════════════════════════════════════════════════════════════════
// USER RANK
// ══════════════════════════════════════════════════════════════════════════════

// Position - позиция пользователя в глобальном рейтинге и в своём факультете.
type Position struct {
	Entry       Entry `json:"entry"`
	GlobalRank  Rank  `json:"globalRank"`
	FacultyRank Rank  `json:"facultyRank"`
	Total       int   `json:"totalStudents"`
}

// PositionOf вычисляет позицию пользователя. shared.ErrNotRanked, если
// пользователя нет в рейтинге (например, администратор).
func (r *Ranking) PositionOf(userID string) (*Position, error) {
	e, ok := r.Get(userID)
	if !ok {
		return nil, shared.ErrNotRanked
	}
	facultyRank := Rank(1)
	for _, other := range r.entries {
		if other.UserID == userID {
			break
		}
		if other.Faculty == e.Faculty {
			facultyRank++
		}
	}
	return &Position{Entry: *e, GlobalRank: e.Rank, FacultyRank: facultyRank, Total: r.Len()}, nil
}
