package stats

// Achievement - достижение, открываемое по порогам очков, игр или серии.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Unlocked    bool   `json:"unlocked"`
}

type achievementRule struct {
	Achievement
	unlocked func(totalPoints, games, streak int) bool
}

var achievementRules = []achievementRule{
	{
		Achievement: Achievement{ID: "first_game", Name: "First Steps", Description: "Played your first game", Icon: "seedling"},
		unlocked:    func(_, games, _ int) bool { return games >= 1 },
	},
	{
		Achievement: Achievement{ID: "points_500", Name: "Eco Warrior", Description: "Earned 500 total points", Icon: "medal"},
		unlocked:    func(points, _, _ int) bool { return points >= 500 },
	},
	{
		Achievement: Achievement{ID: "points_1000", Name: "Sustainability Champion", Description: "Earned 1000 total points", Icon: "trophy"},
		unlocked:    func(points, _, _ int) bool { return points >= 1000 },
	},
	{
		Achievement: Achievement{ID: "games_50", Name: "Dedicated Player", Description: "Played 50 games", Icon: "gamepad"},
		unlocked:    func(_, games, _ int) bool { return games >= 50 },
	},
	{
		Achievement: Achievement{ID: "streak_7", Name: "Weekly Warrior", Description: "7-day play streak", Icon: "fire"},
		unlocked:    func(_, _, streak int) bool { return streak >= WeeklyStreakDays },
	},
}

// Achievements возвращает полный список достижений с флагом Unlocked.
func Achievements(totalPoints, gamesPlayed, streak int) []Achievement {
	out := make([]Achievement, 0, len(achievementRules))
	for _, r := range achievementRules {
		a := r.Achievement
		a.Unlocked = r.unlocked(totalPoints, gamesPlayed, streak)
		out = append(out, a)
	}
	return out
}

// Unlocked оставляет только открытые достижения.
func Unlocked(all []Achievement) []Achievement {
	out := make([]Achievement, 0, len(all))
	for _, a := range all {
		if a.Unlocked {
			out = append(out, a)
		}
	}
	return out
}
