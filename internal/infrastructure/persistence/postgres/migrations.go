package postgres

// Migrations returns the embedded schema migrations in version order.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_progress",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_user_profiles",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS user_progress (
    user_id      TEXT PRIMARY KEY,
    total_xp     INTEGER NOT NULL DEFAULT 0,
    last_updated TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,

    CONSTRAINT valid_total_xp CHECK (total_xp >= 0)
);

CREATE TABLE IF NOT EXISTS completed_sections (
    id           UUID PRIMARY KEY,
    user_id      TEXT NOT NULL REFERENCES user_progress(user_id) ON DELETE CASCADE,
    scenario_id  TEXT NOT NULL,
    tier         TEXT NOT NULL,
    xp_awarded   INTEGER NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL,

    CONSTRAINT completed_sections_user_scenario UNIQUE (user_id, scenario_id),
    CONSTRAINT valid_xp_awarded CHECK (xp_awarded > 0)
);

-- ranking reads
CREATE INDEX IF NOT EXISTS idx_user_progress_total_xp ON user_progress(total_xp DESC);
CREATE INDEX IF NOT EXISTS idx_completed_sections_user ON completed_sections(user_id, completed_at);
`

const migration001Down = `
DROP TABLE IF EXISTS completed_sections;
DROP TABLE IF EXISTS user_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: USER PROFILES
// Display data overlaid on the identity directory.
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS user_profiles (
    user_id                TEXT PRIMARY KEY,
    email                  TEXT NOT NULL,
    display_name           TEXT NOT NULL DEFAULT '',
    avatar_url             TEXT NOT NULL DEFAULT '',
    linkedin_url           TEXT NOT NULL DEFAULT '',
    power_ranking_enabled  BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_user_profiles_email ON user_profiles(lower(email));
`

const migration002Down = `
DROP TABLE IF EXISTS user_profiles;
`
