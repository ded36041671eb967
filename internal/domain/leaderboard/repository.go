package leaderboard

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет контракт чтения рейтинга. В рейтинг попадают только
// пользователи с ролью student. Реализация находится в infrastructure слое.
type Repository interface {
	// Page возвращает страницу рейтинга по нормализованному запросу.
	Page(ctx context.Context, q Query) (*Page, error)

	// Position возвращает глобальный ранг и ранг в факультете.
	// shared.ErrUserNotFound для неизвестного пользователя,
	// shared.ErrNotRanked для пользователя вне рейтинга.
	Position(ctx context.Context, userID string) (*Position, error)

	// Search ищет по имени и e-mail без учёта регистра, не более limit строк,
	// в порядке рейтинга с глобальными рангами.
	Search(ctx context.Context, term string, limit int) ([]Entry, error)
}

// Generation - версия кэша, наблюдённая при чтении. Каждый Invalidate
// переводит кэш в новое поколение.
type Generation int64

// PageCache - кэш страниц рейтинга.
//
// GetPage возвращает поколение, в котором выполнялось чтение; при промахе
// страница из хранилища сохраняется через SetPage именно в этом поколении.
// Если между чтением и записью прошёл Invalidate, страница попадает в уже
// недоступное поколение и никогда не отдаётся.
type PageCache interface {
	// GetPage возвращает закэшированную страницу. Промах: (nil, gen, nil).
	GetPage(ctx context.Context, q Query) (*Page, Generation, error)

	// SetPage кладёт страницу в кэш в поколении gen.
	SetPage(ctx context.Context, q Query, gen Generation, p *Page) error

	// Invalidate делает все закэшированные страницы устаревшими.
	Invalidate(ctx context.Context) error
}
