package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: USERS AND STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Accounts. total_points and current_streak are maintained by the
-- aggregator in the same transaction as score_records inserts.
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email VARCHAR(254) NOT NULL,
    password_hash TEXT NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL,
    student_id VARCHAR(50) NOT NULL,
    faculty VARCHAR(10) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'student',
    total_points INTEGER NOT NULL DEFAULT 0,
    current_streak INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT users_email_key UNIQUE (email),
    CONSTRAINT users_student_id_key UNIQUE (student_id),
    CONSTRAINT valid_role CHECK (role IN ('student', 'admin')),
    CONSTRAINT valid_faculty CHECK (faculty IN ('FCI', 'FOE', 'FOM', 'FCM', 'FAC', 'FIST', 'FET', 'FOL')),
    CONSTRAINT valid_total_points CHECK (total_points >= 0),
    CONSTRAINT valid_streak CHECK (current_streak >= 0)
);

-- Ranking order: points desc, earlier registration, id.
CREATE INDEX IF NOT EXISTS idx_users_ranking
    ON users(total_points DESC, created_at ASC, id ASC) WHERE role = 'student';
CREATE INDEX IF NOT EXISTS idx_users_faculty_ranking
    ON users(faculty, total_points DESC, created_at ASC, id ASC) WHERE role = 'student';
CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC, id);

-- Per-user rollups, one row per user.
CREATE TABLE IF NOT EXISTS user_stats (
    user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    quiz_count INTEGER NOT NULL DEFAULT 0,
    quiz_points INTEGER NOT NULL DEFAULT 0,
    memory_count INTEGER NOT NULL DEFAULT 0,
    memory_points INTEGER NOT NULL DEFAULT 0,
    puzzle_count INTEGER NOT NULL DEFAULT 0,
    puzzle_points INTEGER NOT NULL DEFAULT 0,
    sorting_count INTEGER NOT NULL DEFAULT 0,
    sorting_points INTEGER NOT NULL DEFAULT 0,
    bonus_count INTEGER NOT NULL DEFAULT 0,
    bonus_points INTEGER NOT NULL DEFAULT 0,
    current_streak INTEGER NOT NULL DEFAULT 0,
    last_played_date DATE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration001Down = `
DROP TABLE IF EXISTS user_stats;
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: SCORE RECORDS AND DAILY CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Immutable point ledger. One row per accepted submission or bonus.
CREATE TABLE IF NOT EXISTS score_records (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    category VARCHAR(20) NOT NULL,
    points INTEGER NOT NULL,
    played_at TIMESTAMP WITH TIME ZONE NOT NULL,
    details JSONB,
    idempotency_key VARCHAR(128) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT score_records_idempotency_key UNIQUE (user_id, idempotency_key),
    CONSTRAINT valid_category CHECK (category IN ('quiz', 'memory', 'puzzle', 'sorting', 'bonus')),
    CONSTRAINT valid_points CHECK (points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_score_records_user_played ON score_records(user_id, played_at DESC);
CREATE INDEX IF NOT EXISTS idx_score_records_played_at ON score_records(played_at DESC);

-- Daily challenge progress per user and campus calendar date.
CREATE TABLE IF NOT EXISTS daily_challenges (
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    challenge_date DATE NOT NULL,
    daily_login_claimed BOOLEAN NOT NULL DEFAULT FALSE,
    game_played BOOLEAN NOT NULL DEFAULT FALSE,
    first_game_claimed BOOLEAN NOT NULL DEFAULT FALSE,
    weekly_streak_claimed BOOLEAN NOT NULL DEFAULT FALSE,

    PRIMARY KEY (user_id, challenge_date)
);
`

const migration002Down = `
DROP TABLE IF EXISTS daily_challenges;
DROP TABLE IF EXISTS score_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: QUIZ QUESTIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS quiz_questions (
    id BIGSERIAL PRIMARY KEY,
    question TEXT NOT NULL,
    option_a TEXT NOT NULL,
    option_b TEXT NOT NULL,
    option_c TEXT NOT NULL,
    option_d TEXT NOT NULL,
    correct_option SMALLINT NOT NULL,
    fact TEXT NOT NULL DEFAULT '',
    difficulty VARCHAR(10) NOT NULL DEFAULT 'easy',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_correct_option CHECK (correct_option BETWEEN 0 AND 3)
);
`

const migration003Down = `
DROP TABLE IF EXISTS quiz_questions;
`

// GetMigrations returns all migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_users_and_stats", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_score_records_and_challenges", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_quiz_questions", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}
