// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Получает страницу рейтинга студентов, глобальную или по факультету.
// Сначала пробует кэш страниц, при промахе читает хранилище и кладёт в кэш.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит сырые параметры запроса рейтинга.
type GetLeaderboardQuery struct {
	// Page - номер страницы (пусто = 1).
	Page string

	// PageSize - размер страницы (пусто = 20, максимум 100).
	PageSize string

	// Faculty - код или название факультета (пусто = все факультеты).
	Faculty string
}

// LeaderboardResult - страница рейтинга.
type LeaderboardResult struct {
	// Entries - строки страницы в порядке рейтинга.
	Entries []leaderboard.Entry `json:"entries"`

	// Total - общее число студентов в выборке.
	Total int `json:"total"`

	// Page, PageSize - нормализованные параметры.
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`

	// HasMore - есть ли строки после этой страницы.
	HasMore bool `json:"hasMore"`

	// Faculty - применённый фильтр (пусто = все).
	Faculty string `json:"faculty,omitempty"`
}

// GetLeaderboardHandler обрабатывает запросы на получение рейтинга.
type GetLeaderboardHandler struct {
	repo   leaderboard.Repository
	cache  leaderboard.PageCache
	logger *logger.Logger
	now    func() time.Time
}

// NewGetLeaderboardHandler создаёт обработчик. cache может быть nil.
func NewGetLeaderboardHandler(repo leaderboard.Repository, cache leaderboard.PageCache, log *logger.Logger) *GetLeaderboardHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetLeaderboardHandler{repo: repo, cache: cache, logger: log, now: time.Now}
}

// Handle выполняет запрос.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*LeaderboardResult, error) {
	q, err := leaderboard.ParseQuery(query.Page, query.PageSize, query.Faculty)
	if err != nil {
		return nil, err
	}
	page, err := h.Page(ctx, q)
	if err != nil {
		return nil, err
	}
	return toLeaderboardResult(page, q, h.now()), nil
}

// Page возвращает страницу по нормализованному запросу через кэш.
// Ошибки кэша не критичны: логируем и читаем из хранилища.
func (h *GetLeaderboardHandler) Page(ctx context.Context, q leaderboard.Query) (*leaderboard.Page, error) {
	cacheable := h.cache != nil && !q.UnknownFaculty

	var gen leaderboard.Generation
	if cacheable {
		cached, g, err := h.cache.GetPage(ctx, q)
		switch {
		case err != nil:
			h.logger.Warn("leaderboard cache read failed", logger.Err(err))
			cacheable = false
		case cached != nil:
			return cached, nil
		}
		gen = g
	}

	page, err := h.repo.Page(ctx, q)
	if err != nil {
		return nil, err
	}

	// Страница сохраняется в поколении, наблюдённом до чтения хранилища.
	if cacheable {
		if err := h.cache.SetPage(ctx, q, gen, page); err != nil {
			h.logger.Warn("leaderboard cache write failed", logger.Err(err))
		}
	}
	return page, nil
}

// Кэшированная страница может пережить полночь, поэтому серии пересчитываются
// на текущую дату уже после кэша.
func toLeaderboardResult(p *leaderboard.Page, q leaderboard.Query, now time.Time) *LeaderboardResult {
	return &LeaderboardResult{
		Entries:  leaderboard.WithStreaksOn(p.Entries, now),
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasMore:  p.HasMore(),
		Faculty:  string(q.Faculty),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// GET TOP QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetTopHandler возвращает первые N строк глобального рейтинга.
type GetTopHandler struct {
	pages *GetLeaderboardHandler
}

// NewGetTopHandler создаёт обработчик поверх GetLeaderboardHandler,
// чтобы топ тоже обслуживался из кэша.
func NewGetTopHandler(pages *GetLeaderboardHandler) *GetTopHandler {
	return &GetTopHandler{pages: pages}
}

// Handle возвращает топ-n; n <= 0 означает топ-3.
func (h *GetTopHandler) Handle(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	q, err := leaderboard.TopQuery(n)
	if err != nil {
		return nil, err
	}
	page, err := h.pages.Page(ctx, q)
	if err != nil {
		return nil, err
	}
	return leaderboard.WithStreaksOn(page.Entries, h.pages.now()), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH LEADERBOARD QUERY
// ══════════════════════════════════════════════════════════════════════════════

// SearchLeaderboardHandler ищет студентов по имени или e-mail.
type SearchLeaderboardHandler struct {
	repo leaderboard.Repository
	now  func() time.Time
}

// NewSearchLeaderboardHandler создаёт обработчик поиска.
func NewSearchLeaderboardHandler(repo leaderboard.Repository) *SearchLeaderboardHandler {
	return &SearchLeaderboardHandler{repo: repo, now: time.Now}
}

// Handle возвращает до 20 совпадений с глобальными рангами.
func (h *SearchLeaderboardHandler) Handle(ctx context.Context, term string) ([]leaderboard.Entry, error) {
	term, err := leaderboard.NormalizeSearch(term)
	if err != nil {
		return nil, err
	}
	entries, err := h.repo.Search(ctx, term, leaderboard.SearchLimit)
	if err != nil {
		return nil, err
	}
	return leaderboard.WithStreaksOn(entries, h.now()), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET USER RANK QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetUserRankHandler возвращает позицию пользователя: глобальную и в факультете.
type GetUserRankHandler struct {
	repo leaderboard.Repository
	now  func() time.Time
}

// NewGetUserRankHandler создаёт обработчик.
func NewGetUserRankHandler(repo leaderboard.Repository) *GetUserRankHandler {
	return &GetUserRankHandler{repo: repo, now: time.Now}
}

// Handle возвращает позицию. Для администратора - shared.ErrNotRanked (NotFound).
func (h *GetUserRankHandler) Handle(ctx context.Context, userID string) (*leaderboard.Position, error) {
	pos, err := h.repo.Position(ctx, userID)
	if err != nil {
		return nil, err
	}
	pos.Entry.CurrentStreak = pos.Entry.StreakOn(h.now())
	return pos, nil
}
