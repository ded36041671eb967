package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

var epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func entry(id string, points int, joinedDay int, f user.Faculty) *Entry {
	return &Entry{
		UserID:      id,
		FirstName:   "User",
		LastName:    id,
		Faculty:     f,
		TotalPoints: points,
		CreatedAt:   epoch.AddDate(0, 0, joinedDay),
	}
}

func sampleRanking() *Ranking {
	return NewRanking([]*Entry{
		entry("carol", 100, 3, user.FacultyLaw),
		entry("alice", 250, 5, user.FacultyComputing),
		entry("bob", 100, 1, user.FacultyComputing),
		entry("dave", 0, 0, user.FacultyEngineering),
		entry("erin", 100, 1, user.FacultyLaw),
	})
}

func TestRanking_DeterministicTieBreak(t *testing.T) {
	r := sampleRanking()
	page := r.Slice(0, r.Len())

	ids := make([]string, len(page))
	for i, e := range page {
		ids[i] = e.UserID
		assert.Equal(t, Rank(i+1), e.Rank)
	}
	// bob and erin tie on points and join date: id decides.
	assert.Equal(t, []string{"alice", "bob", "erin", "carol", "dave"}, ids)
}

func TestRanking_Monotonic(t *testing.T) {
	r := sampleRanking()
	all := r.Slice(0, r.Len())
	for _, a := range all {
		for _, b := range all {
			if a.TotalPoints > b.TotalPoints {
				assert.Less(t, int(a.Rank), int(b.Rank), "%s vs %s", a.UserID, b.UserID)
			}
		}
	}
}

func TestRanking_Page(t *testing.T) {
	r := sampleRanking()

	q, err := NewQuery(2, 2, "")
	require.NoError(t, err)
	p := r.Page(q)
	require.Len(t, p.Entries, 2)
	assert.Equal(t, "erin", p.Entries[0].UserID)
	assert.Equal(t, Rank(3), p.Entries[0].Rank)
	assert.Equal(t, 5, p.Total)
	assert.True(t, p.HasMore())

	q, _ = NewQuery(3, 2, "")
	assert.False(t, r.Page(q).HasMore())

	q, _ = NewQuery(10, 2, "")
	assert.Empty(t, r.Page(q).Entries)
}

func TestRanking_FacultyPage(t *testing.T) {
	r := sampleRanking()

	q, err := NewQuery(1, 10, "fol")
	require.NoError(t, err)
	p := r.Page(q)
	require.Len(t, p.Entries, 2)
	assert.Equal(t, "erin", p.Entries[0].UserID)
	assert.Equal(t, Rank(1), p.Entries[0].Rank)
	assert.Equal(t, 2, p.Total)

	q, err = NewQuery(1, 10, "Faculty of Nowhere")
	require.NoError(t, err)
	p = r.Page(q)
	assert.Empty(t, p.Entries)
	assert.Zero(t, p.Total)
}

func TestRanking_PositionOf(t *testing.T) {
	r := sampleRanking()

	pos, err := r.PositionOf("carol")
	require.NoError(t, err)
	assert.Equal(t, Rank(4), pos.GlobalRank)
	assert.Equal(t, Rank(2), pos.FacultyRank)
	assert.Equal(t, 5, pos.Total)

	_, err = r.PositionOf("admin")
	assert.True(t, shared.IsNotFound(err))
}

func TestRanking_Search(t *testing.T) {
	r := sampleRanking()
	emails := map[string]string{"dave": "dave.green@mmu.edu.my"}

	found := r.Search("GREEN", emails, SearchLimit)
	require.Len(t, found, 1)
	assert.Equal(t, Rank(5), found[0].Rank)

	assert.Len(t, r.Search("user", emails, 2), 2)
}

func TestQuery_Normalization(t *testing.T) {
	_, err := NewQuery(0, 10, "")
	assert.True(t, shared.IsInvalidQuery(err))

	q, err := NewQuery(1, 1000, "")
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, q.PageSize)

	q, err = NewQuery(1, 0, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, q.PageSize)

	_, err = ParseQuery("abc", "", "")
	assert.True(t, shared.IsInvalidQuery(err))

	q, err = ParseQuery("", "", "")
	require.NoError(t, err)
	assert.Equal(t, Query{Page: 1, PageSize: DefaultPageSize}, q)

	q, err = TopQuery(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopN, q.PageSize)
}

func TestNormalizeSearch(t *testing.T) {
	term, err := NormalizeSearch("  tan ")
	require.NoError(t, err)
	assert.Equal(t, "tan", term)

	_, err = NormalizeSearch("   ")
	assert.True(t, shared.IsInvalidQuery(err))
}

func TestEntry_StreakOn(t *testing.T) {
	at := func(day int) time.Time {
		return time.Date(2025, time.March, day, 12, 0, 0, 0, timeutil.Location())
	}
	e := Entry{UserID: "u1", CurrentStreak: 4, LastPlayedDate: "2025-03-09"}

	assert.Equal(t, 4, e.StreakOn(at(9)))
	assert.Equal(t, 4, e.StreakOn(at(10)), "not playing yet today keeps the streak")
	assert.Equal(t, 0, e.StreakOn(at(11)))
	assert.Equal(t, 0, (&Entry{CurrentStreak: 4}).StreakOn(at(9)))

	entries := []Entry{e, {UserID: "u2", CurrentStreak: 2, LastPlayedDate: "2025-03-11"}}
	shown := WithStreaksOn(entries, at(11))
	assert.Equal(t, []int{0, 2}, []int{shown[0].CurrentStreak, shown[1].CurrentStreak})
	assert.Equal(t, 4, entries[0].CurrentStreak, "input is not modified")
	assert.NotNil(t, WithStreaksOn(nil, at(11)))
}
