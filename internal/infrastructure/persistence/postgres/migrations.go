package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create students table
-- Version: 001

CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    display_name VARCHAR(100) NOT NULL,
    level VARCHAR(20) NOT NULL,
    profile_photo_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_level CHECK (level IN ('Amarillo', 'Azul', 'Rojo'))
);

CREATE INDEX IF NOT EXISTS idx_students_level ON students(level);
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: EVALUATIONS & HISTORY EXTRAS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create evaluations and history_extras tables
-- Version: 002

-- Append-only evaluation records. The captured level is stored per record
-- and never updated when the student is promoted.
CREATE TABLE IF NOT EXISTS evaluations (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    level VARCHAR(20) NOT NULL,
    exercises JSONB NOT NULL,
    ratings JSONB NOT NULL,
    comment TEXT NOT NULL,
    photo_url TEXT NOT NULL DEFAULT '',
    photo_key TEXT NOT NULL DEFAULT '',
    average_score NUMERIC(5,2) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_eval_level CHECK (level IN ('Amarillo', 'Azul', 'Rojo')),
    CONSTRAINT valid_average CHECK (average_score >= 0)
);

CREATE INDEX IF NOT EXISTS idx_evaluations_student_created
    ON evaluations(student_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_evaluations_student_level_created
    ON evaluations(student_id, level, created_at);
CREATE INDEX IF NOT EXISTS idx_evaluations_photo_key
    ON evaluations(photo_key) WHERE photo_key <> '';

-- One general comment + photo per student, updated by upsert.
CREATE TABLE IF NOT EXISTS history_extras (
    student_id UUID PRIMARY KEY REFERENCES students(id) ON DELETE CASCADE,
    general_comment TEXT NOT NULL DEFAULT '',
    general_photo_url TEXT NOT NULL DEFAULT '',
    general_photo_key TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration002Down = `
DROP TABLE IF EXISTS history_extras;
DROP TABLE IF EXISTS evaluations;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: POINTS LEDGER
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create points ledger tables
-- Version: 003

CREATE TABLE IF NOT EXISTS points_balances (
    student_id UUID PRIMARY KEY REFERENCES students(id) ON DELETE CASCADE,
    points INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT non_negative_points CHECK (points >= 0)
);

-- One entry per accrual. The unique evaluation_id makes accrual idempotent:
-- a duplicate event inserts nothing and credits nothing.
CREATE TABLE IF NOT EXISTS points_entries (
    id BIGSERIAL PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    evaluation_id UUID NOT NULL UNIQUE REFERENCES evaluations(id) ON DELETE CASCADE,
    amount INTEGER NOT NULL,
    accrued_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT non_negative_amount CHECK (amount >= 0)
);

CREATE INDEX IF NOT EXISTS idx_points_entries_student
    ON points_entries(student_id, accrued_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS points_entries;
DROP TABLE IF EXISTS points_balances;
`

// GetMigrations returns all migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_students", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_evaluations_and_extras", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_points_ledger", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}
