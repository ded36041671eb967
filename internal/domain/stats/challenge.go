package stats

import (
	"strings"
	"time"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

// Challenge - вид ежедневного задания.
type Challenge string

const (
	// ChallengeDailyLogin - ежедневный вход, +10 очков.
	ChallengeDailyLogin Challenge = "daily_login"

	// ChallengeFirstGame - первая игра за день, +20 очков, начисляется автоматически.
	ChallengeFirstGame Challenge = "first_game"

	// ChallengeWeeklyStreak - серия из 7 дней, +100 очков.
	ChallengeWeeklyStreak Challenge = "weekly_streak"
)

const (
	DailyLoginReward   = 10
	FirstGameReward    = 20
	WeeklyStreakReward = 100

	// WeeklyStreakDays - минимальная серия для еженедельного бонуса.
	WeeklyStreakDays = 7
)

// Reward возвращает награду за задание.
func (c Challenge) Reward() int {
	switch c {
	case ChallengeDailyLogin:
		return DailyLoginReward
	case ChallengeFirstGame:
		return FirstGameReward
	case ChallengeWeeklyStreak:
		return WeeklyStreakReward
	}
	return 0
}

// IsValid проверяет, что задание известно.
func (c Challenge) IsValid() bool {
	return c.Reward() > 0
}

// ReservedKeyPrefix - префикс ключей бонусных записей. Клиентские токены
// с этим префиксом не принимаются.
const ReservedKeyPrefix = "challenge:"

// IsReservedKey сообщает, что ключ зарезервирован за бонусными записями.
func IsReservedKey(key string) bool {
	return strings.HasPrefix(key, ReservedKeyPrefix)
}

// IdempotencyKey возвращает ключ записи журнала для задания на дату.
// Уникальность ключа гарантирует одно начисление в день даже без флагов.
func (c Challenge) IdempotencyKey(date time.Time) string {
	return ReservedKeyPrefix + string(c) + ":" + timeutil.FormatDate(date)
}

// DailyChallenge - прогресс пользователя по заданиям за календарный день.
type DailyChallenge struct {
	// UserID - владелец строки.
	UserID string `json:"-"`

	// Date - календарная дата (полночь UTC).
	Date time.Time `json:"date"`

	// DailyLoginClaimed - бонус за вход получен.
	DailyLoginClaimed bool `json:"dailyLoginClaimed"`

	// GamePlayed - за день сыграна хотя бы одна игра.
	GamePlayed bool `json:"gamePlayedToday"`

	// FirstGameClaimed - бонус за первую игру начислен.
	FirstGameClaimed bool `json:"firstGameBonusClaimed"`

	// WeeklyStreakClaimed - еженедельный бонус получен.
	WeeklyStreakClaimed bool `json:"weeklyStreakBonusClaimed"`
}

// NewDailyChallenge создаёт пустую строку на дату.
func NewDailyChallenge(userID string, date time.Time) *DailyChallenge {
	return &DailyChallenge{UserID: userID, Date: timeutil.DateOf(date)}
}

// Claim отмечает задание выполненным. Ошибка InvalidSubmission, если
// задание уже получено или его условие не выполнено.
func (d *DailyChallenge) Claim(c Challenge, s *UserStats) error {
	const op = "ClaimChallenge"
	switch c {
	case ChallengeDailyLogin:
		if d.DailyLoginClaimed {
			return shared.InvalidSubmission(domain, op, "daily login bonus already claimed today")
		}
		d.DailyLoginClaimed = true

	case ChallengeFirstGame:
		if !d.GamePlayed {
			return shared.InvalidSubmission(domain, op, "no game played today")
		}
		if d.FirstGameClaimed {
			return shared.InvalidSubmission(domain, op, "first game bonus already claimed today")
		}
		d.FirstGameClaimed = true

	case ChallengeWeeklyStreak:
		if d.WeeklyStreakClaimed {
			return shared.InvalidSubmission(domain, op, "weekly streak bonus already claimed today")
		}
		if streak := s.StreakOn(d.Date); streak < WeeklyStreakDays {
			return shared.InvalidSubmission(domain, op, "need a %d-day streak, current streak is %d", WeeklyStreakDays, streak)
		}
		d.WeeklyStreakClaimed = true

	default:
		return shared.InvalidSubmission(domain, op, "unknown challenge %q", c)
	}
	return nil
}

// WeeklyStreakAvailable сообщает, можно ли сейчас получить еженедельный бонус.
func (d *DailyChallenge) WeeklyStreakAvailable(s *UserStats) bool {
	return !d.WeeklyStreakClaimed && s.StreakOn(d.Date) >= WeeklyStreakDays
}

// BonusRecord строит запись журнала для награды.
func BonusRecord(id, userID string, c Challenge, at time.Time) ScoreRecord {
	return ScoreRecord{
		ID:             id,
		UserID:         userID,
		Category:       CategoryBonus,
		Points:         c.Reward(),
		PlayedAt:       at,
		Details:        []byte(`{"challenge":"` + string(c) + `"}`),
		IdempotencyKey: c.IdempotencyKey(timeutil.DateOf(at)),
	}
}

// FirstGameBonus строит бонусную запись за первую игру дня. Идентификатор
// выводится из идентификатора игровой записи.
func FirstGameBonus(game ScoreRecord) ScoreRecord {
	return BonusRecord(game.ID+":"+string(ChallengeFirstGame), game.UserID, ChallengeFirstGame, game.PlayedAt)
}
