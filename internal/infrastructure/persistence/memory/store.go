// Package memory provides an in-process Result Store with the same semantics
// as the PostgreSQL implementation. A single mutex serializes writes, which
// gives every operation the atomicity of one database transaction.
package memory

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/leaderboard"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/scoring"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/stats"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

// Compile-time interface checks.
var (
	_ user.Repository        = (*Store)(nil)
	_ stats.Store            = (*Store)(nil)
	_ leaderboard.Repository = (*Store)(nil)
	_ scoring.QuestionBank   = (*Store)(nil)
)

type challengeKey struct {
	userID string
	date   time.Time
}

// Store is the in-memory Result Store.
type Store struct {
	mu sync.RWMutex

	users      map[string]*user.User
	emails     map[string]string
	studentIDs map[string]string
	stats      map[string]*stats.UserStats
	records    map[string][]stats.ScoreRecord
	keys       map[string]map[string]struct{}
	challenges map[challengeKey]*stats.DailyChallenge

	questions   map[int64]scoring.Question
	questionIDs []int64
}

// Option configures a Store.
type Option func(*Store)

// WithQuestions loads a question bank.
func WithQuestions(qs []scoring.Question) Option {
	return func(s *Store) {
		for _, q := range qs {
			if _, exists := s.questions[q.ID]; !exists {
				s.questionIDs = append(s.questionIDs, q.ID)
			}
			s.questions[q.ID] = q
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		users:      make(map[string]*user.User),
		emails:     make(map[string]string),
		studentIDs: make(map[string]string),
		stats:      make(map[string]*stats.UserStats),
		records:    make(map[string][]stats.ScoreRecord),
		keys:       make(map[string]map[string]struct{}),
		challenges: make(map[challengeKey]*stats.DailyChallenge),
		questions:  make(map[int64]scoring.Question),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// Create inserts a user with a zeroed statistics row.
func (s *Store) Create(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := user.NormalizeEmail(u.Email)
	if _, taken := s.emails[email]; taken {
		return shared.ErrEmailTaken
	}
	if _, taken := s.studentIDs[u.StudentID]; taken {
		return shared.ErrStudentIDTaken
	}

	c := *u
	c.Email = email
	s.users[c.ID] = &c
	s.emails[email] = c.ID
	s.studentIDs[c.StudentID] = c.ID
	s.stats[c.ID] = stats.NewUserStats(c.ID)
	s.keys[c.ID] = make(map[string]struct{})
	return nil
}

// GetByID returns a copy of the user.
func (s *Store) GetByID(ctx context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

// GetByEmail returns a copy of the user with the given e-mail.
func (s *Store) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	id, ok := s.emails[user.NormalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return s.GetByID(ctx, id)
}

// List returns users newest first.
func (s *Store) List(ctx context.Context, opts user.ListOptions) ([]*user.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		if opts.Role != "" && u.Role != opts.Role {
			continue
		}
		c := *u
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	from := min(max(opts.Offset, 0), total)
	to := total
	if opts.Limit > 0 {
		to = min(from+opts.Limit, total)
	}
	return all[from:to], total, nil
}

// UpdateRole changes the role of a user.
func (s *Store) UpdateRole(ctx context.Context, id string, role user.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return shared.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return shared.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

// Delete removes the user and everything that belongs to them.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return shared.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.emails, u.Email)
	delete(s.studentIDs, u.StudentID)
	delete(s.stats, id)
	delete(s.records, id)
	delete(s.keys, id)
	for k := range s.challenges {
		if k.userID == id {
			delete(s.challenges, k)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATOR
// ══════════════════════════════════════════════════════════════════════════════

// RecordScore inserts the record and applies it to the user's rollups.
func (s *Store) RecordScore(ctx context.Context, rec stats.ScoreRecord) (*stats.Outcome, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFirstGameLocked(rec); err != nil {
		return nil, err
	}
	out, err := s.applyLocked(rec)
	if err != nil || !out.FirstGameToday {
		return out, err
	}
	return s.creditFirstGameLocked(out)
}

// checkFirstGameLocked rejects a game whose first game bonus could not be
// credited, before anything is mutated.
func (s *Store) checkFirstGameLocked(rec stats.ScoreRecord) error {
	if !rec.Category.IsGame() || s.challengeLocked(rec.UserID, rec.PlayedAt).GamePlayed {
		return nil
	}
	bonus := stats.FirstGameBonus(rec)
	if _, dup := s.keys[rec.UserID][bonus.IdempotencyKey]; dup {
		return shared.ErrDuplicateSubmission
	}
	return nil
}

// creditFirstGameLocked applies the first game bonus right after the game.
func (s *Store) creditFirstGameLocked(game *stats.Outcome) (*stats.Outcome, error) {
	dc := *s.challengeLocked(game.Record.UserID, game.Record.PlayedAt)
	if err := dc.Claim(stats.ChallengeFirstGame, &game.Stats); err != nil {
		return nil, err
	}
	bonus := stats.FirstGameBonus(game.Record)
	after, err := s.applyLocked(bonus)
	if err != nil {
		return nil, err
	}
	s.challenges[challengeKey{dc.UserID, dc.Date}] = &dc

	return &stats.Outcome{
		Record:         game.Record,
		Stats:          after.Stats,
		TotalPoints:    after.TotalPoints,
		FirstGameToday: true,
		Bonus:          &bonus,
	}, nil
}

// ClaimChallenge marks the challenge and credits its reward.
func (s *Store) ClaimChallenge(ctx context.Context, recordID, userID string, c stats.Challenge, at time.Time) (*stats.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stats[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	dc := *s.challengeLocked(userID, at)
	if err := dc.Claim(c, st); err != nil {
		return nil, err
	}

	out, err := s.applyLocked(stats.BonusRecord(recordID, userID, c, at))
	if err != nil {
		return nil, err
	}
	s.challenges[challengeKey{userID, dc.Date}] = &dc
	return out, nil
}

// applyLocked performs the whole aggregator transition; nothing is mutated
// unless every check passes.
func (s *Store) applyLocked(rec stats.ScoreRecord) (*stats.Outcome, error) {
	u, ok := s.users[rec.UserID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	if _, dup := s.keys[rec.UserID][rec.IdempotencyKey]; dup {
		return nil, shared.ErrDuplicateSubmission
	}

	next := *s.stats[rec.UserID]
	if err := next.Apply(rec); err != nil {
		return nil, err
	}

	first := false
	if rec.Category.IsGame() {
		dc := s.challengeLocked(rec.UserID, rec.PlayedAt)
		first = !dc.GamePlayed
		dc.GamePlayed = true
		s.challenges[challengeKey{rec.UserID, dc.Date}] = dc
	}

	s.records[rec.UserID] = append(s.records[rec.UserID], rec)
	s.keys[rec.UserID][rec.IdempotencyKey] = struct{}{}
	s.stats[rec.UserID] = &next
	u.TotalPoints += rec.Points
	u.CurrentStreak = next.CurrentStreak
	u.UpdatedAt = time.Now()

	return &stats.Outcome{
		Record:         rec,
		Stats:          next,
		TotalPoints:    u.TotalPoints,
		FirstGameToday: first,
	}, nil
}

// challengeLocked returns the stored row for the date of at, or a fresh one
// that is not yet stored.
func (s *Store) challengeLocked(userID string, at time.Time) *stats.DailyChallenge {
	date := timeutil.DateOf(at)
	if dc, ok := s.challenges[challengeKey{userID, date}]; ok {
		return dc
	}
	return stats.NewDailyChallenge(userID, date)
}

// ReconcileTotals rebuilds every rollup from the record log.
func (s *Store) ReconcileTotals(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fixed := 0
	for id, u := range s.users {
		if err := ctx.Err(); err != nil {
			return fixed, shared.StoreUnavailable("stats", "ReconcileTotals", err)
		}
		rebuilt := stats.Rebuild(id, s.records[id])
		current := s.stats[id]
		if stats.SameTallies(current, rebuilt) && u.TotalPoints == rebuilt.TotalPoints() {
			continue
		}
		rebuilt.CurrentStreak = current.CurrentStreak
		rebuilt.LastPlayedDate = current.LastPlayedDate
		rebuilt.UpdatedAt = time.Now()
		s.stats[id] = rebuilt
		u.TotalPoints = rebuilt.TotalPoints()
		fixed++
	}
	return fixed, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS READS
// ══════════════════════════════════════════════════════════════════════════════

// GetStats returns a copy of the rollup row.
func (s *Store) GetStats(ctx context.Context, userID string) (*stats.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stats[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	c := *st
	return &c, nil
}

// GetDailyChallenge returns the progress row for date.
func (s *Store) GetDailyChallenge(ctx context.Context, userID string, date time.Time) (*stats.DailyChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[userID]; !ok {
		return nil, shared.ErrUserNotFound
	}
	c := *s.challengeLocked(userID, date)
	return &c, nil
}

// RecentRecords returns the newest records first.
func (s *Store) RecentRecords(ctx context.Context, userID string, limit int) ([]stats.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.sortedRecordsLocked(userID)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// RecordsSince returns records played at or after since, newest first.
func (s *Store) RecordsSince(ctx context.Context, userID string, since time.Time) ([]stats.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]stats.ScoreRecord, 0)
	for _, r := range s.sortedRecordsLocked(userID) {
		if !r.PlayedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) sortedRecordsLocked(userID string) []stats.ScoreRecord {
	recs := make([]stats.ScoreRecord, len(s.records[userID]))
	copy(recs, s.records[userID])
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].PlayedAt.After(recs[j].PlayedAt) })
	return recs
}

// GameSummaries returns best and average points per game type.
func (s *Store) GameSummaries(ctx context.Context, userID string) (map[stats.Category]stats.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[stats.Category]int)
	out := make(map[stats.Category]stats.GameSummary)
	for _, r := range s.records[userID] {
		if !r.Category.IsGame() {
			continue
		}
		g := out[r.Category]
		g.Count++
		g.Best = max(g.Best, r.Points)
		out[r.Category] = g
		sums[r.Category] += r.Points
	}
	for c, g := range out {
		g.Average = math.Round(float64(sums[c])/float64(g.Count)*10) / 10
		out[c] = g
	}
	return out, nil
}

// PlatformTotals aggregates over all users.
func (s *Store) PlatformTotals(ctx context.Context, since time.Time) (*stats.PlatformTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &stats.PlatformTotals{
		GamesByType:   make(map[stats.Category]int),
		FacultyPoints: make(map[string]int),
	}
	for id, u := range s.users {
		if u.Role == user.RoleAdmin {
			p.Admins++
		} else {
			p.Students++
			p.TotalPoints += u.TotalPoints
			p.FacultyPoints[string(u.Faculty)] += u.TotalPoints
		}
		if !u.CreatedAt.Before(since) {
			p.RecentSignups++
		}
		active := false
		for _, r := range s.records[id] {
			if r.Category.IsGame() {
				p.TotalGames++
				p.GamesByType[r.Category]++
				if !r.PlayedAt.Before(since) {
					active = true
				}
			}
		}
		if active {
			p.ActiveUsers++
		}
	}
	return p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) rankingLocked() *leaderboard.Ranking {
	entries := make([]*leaderboard.Entry, 0, len(s.users))
	for _, u := range s.users {
		if !u.Role.IsRanked() {
			continue
		}
		e := &leaderboard.Entry{
			UserID:        u.ID,
			FirstName:     u.FirstName,
			LastName:      u.LastName,
			Faculty:       u.Faculty,
			TotalPoints:   u.TotalPoints,
			CurrentStreak: u.CurrentStreak,
			CreatedAt:     u.CreatedAt,
		}
		if st, ok := s.stats[u.ID]; ok && !st.LastPlayedDate.IsZero() {
			e.LastPlayedDate = timeutil.FormatDate(st.LastPlayedDate)
		}
		entries = append(entries, e)
	}
	return leaderboard.NewRanking(entries)
}

// Page returns one leaderboard page.
func (s *Store) Page(ctx context.Context, q leaderboard.Query) (*leaderboard.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rankingLocked().Page(q), nil
}

// Position returns the global and faculty rank of a user.
func (s *Store) Position(ctx context.Context, userID string) (*leaderboard.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[userID]; !ok {
		return nil, shared.ErrUserNotFound
	}
	return s.rankingLocked().PositionOf(userID)
}

// Search matches name or e-mail case-insensitively.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]leaderboard.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emails := make(map[string]string, len(s.users))
	for id, u := range s.users {
		emails[id] = u.Email
	}
	return s.rankingLocked().Search(strings.TrimSpace(term), emails, limit), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION BANK
// ══════════════════════════════════════════════════════════════════════════════

// AnswerKey returns the known questions among ids.
func (s *Store) AnswerKey(ctx context.Context, ids []int64) (map[int64]scoring.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]scoring.Question, len(ids))
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

// Sample returns up to n questions in random order.
func (s *Store) Sample(ctx context.Context, n int) ([]scoring.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n = min(max(n, 0), len(s.questionIDs))
	out := make([]scoring.Question, 0, n)
	for _, i := range rand.Perm(len(s.questionIDs))[:n] {
		out = append(out, s.questions[s.questionIDs[i]])
	}
	return out, nil
}
