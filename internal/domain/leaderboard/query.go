package leaderboard

import (
	"strconv"
	"strings"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
)

const (
	// DefaultPageSize - размер страницы, если он не указан.
	DefaultPageSize = 20

	// MaxPageSize - верхняя граница размера страницы.
	MaxPageSize = 100

	// SearchLimit - максимум результатов поиска.
	SearchLimit = 20

	// DefaultTopN - размер топа по умолчанию.
	DefaultTopN = 3

	// MaxSearchLength - максимальная длина поисковой строки.
	MaxSearchLength = 100
)

// Query - нормализованный запрос страницы рейтинга.
type Query struct {
	// Page - номер страницы, начиная с 1.
	Page int

	// PageSize - размер страницы, 1..MaxPageSize.
	PageSize int

	// Faculty - фильтр по факультету; пусто - глобальный рейтинг.
	Faculty user.Faculty

	// UnknownFaculty - фильтр указан, но не соответствует ни одному
	// факультету. Такой запрос возвращает пустую страницу, а не ошибку.
	UnknownFaculty bool
}

// NewQuery проверяет и нормализует параметры. page < 1 - InvalidQuery;
// pageSize <= 0 заменяется на DefaultPageSize, больше MaxPageSize - обрезается.
func NewQuery(page, pageSize int, faculty string) (Query, error) {
	if page < 1 {
		return Query{}, shared.InvalidQuery(domain, "GetLeaderboard", "page must be at least 1")
	}
	q := Query{Page: page, PageSize: ClampPageSize(pageSize)}

	if faculty = strings.TrimSpace(faculty); faculty != "" {
		f, ok := user.ParseFaculty(faculty)
		if ok {
			q.Faculty = f
		} else {
			q.UnknownFaculty = true
		}
	}
	return q, nil
}

// ParseQuery разбирает строковые параметры запроса. Пустые значения
// означают значения по умолчанию, нечисловые - InvalidQuery.
func ParseQuery(page, pageSize, faculty string) (Query, error) {
	p, err := parseInt("page", page, 1)
	if err != nil {
		return Query{}, err
	}
	ps, err := parseInt("pageSize", pageSize, DefaultPageSize)
	if err != nil {
		return Query{}, err
	}
	return NewQuery(p, ps, faculty)
}

// TopQuery возвращает запрос первой страницы размера n.
func TopQuery(n int) (Query, error) {
	if n <= 0 {
		n = DefaultTopN
	}
	return NewQuery(1, n, "")
}

// Offset возвращает смещение первой строки страницы.
func (q Query) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ClampPageSize приводит размер страницы к 1..MaxPageSize.
func ClampPageSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	}
	return size
}

// NormalizeSearch обрезает пробелы; пустая или слишком длинная строка - InvalidQuery.
func NormalizeSearch(term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", shared.InvalidQuery(domain, "Search", "search query is required")
	}
	if len(term) > MaxSearchLength {
		return "", shared.InvalidQuery(domain, "Search", "search query must be at most %d characters", MaxSearchLength)
	}
	return term, nil
}

func parseInt(name, value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, shared.InvalidQuery(domain, "GetLeaderboard", "%s must be an integer", name)
	}
	return n, nil
}
