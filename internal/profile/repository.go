// Package profile is the reference profile service: it stores each user's
// theme preference and premium flag and serves them over HTTP.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HerbHall/palette/internal/remote"
	"github.com/HerbHall/palette/internal/store"
)

// ErrNotFound is returned when a user has no stored preference.
var ErrNotFound = errors.New("profile: preference not found")

// Repository persists preferences and entitlements per user.
type Repository interface {
	GetPreference(ctx context.Context, userID string) (remote.Preference, error)
	PutPreference(ctx context.Context, userID string, p remote.Preference) error
	IsPremium(ctx context.Context, userID string) (bool, error)
	SetPremium(ctx context.Context, userID string, premium bool) error
}

var migrations = []store.Migration{
	{
		Version:     1,
		Description: "create theme_preferences table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS theme_preferences (
				user_id          TEXT     PRIMARY KEY,
				color_mode       TEXT     NOT NULL,
				theme_type       TEXT     NOT NULL,
				preset_id        TEXT,
				custom_primary   TEXT,
				custom_secondary TEXT,
				custom_accent    TEXT,
				updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`)
			return err
		},
	},
	{
		Version:     2,
		Description: "create entitlements table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS entitlements (
				user_id    TEXT     PRIMARY KEY,
				is_premium INTEGER  NOT NULL DEFAULT 0,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`)
			return err
		},
	},
}

// SQLiteRepository implements Repository on SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository migrates the profile schema and returns a repository.
func NewSQLiteRepository(ctx context.Context, db *store.DB) (*SQLiteRepository, error) {
	if err := db.Migrate(ctx, "profile", migrations); err != nil {
		return nil, fmt.Errorf("migrate profile: %w", err)
	}
	return &SQLiteRepository{db: db.SQL()}, nil
}

func (r *SQLiteRepository) GetPreference(ctx context.Context, userID string) (remote.Preference, error) {
	var p remote.Preference
	var presetID, primary, secondary, accent sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT color_mode, theme_type, preset_id,
			custom_primary, custom_secondary, custom_accent
		FROM theme_preferences WHERE user_id = ?`, userID).
		Scan(&p.ColorMode, &p.ThemeType, &presetID, &primary, &secondary, &accent)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.Preference{}, ErrNotFound
	}
	if err != nil {
		return remote.Preference{}, fmt.Errorf("get preference %s: %w", userID, err)
	}
	p.PresetID = nullable(presetID)
	p.CustomPrimary = nullable(primary)
	p.CustomSecondary = nullable(secondary)
	p.CustomAccent = nullable(accent)
	return p, nil
}

func (r *SQLiteRepository) PutPreference(ctx context.Context, userID string, p remote.Preference) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO theme_preferences
			(user_id, color_mode, theme_type, preset_id, custom_primary, custom_secondary, custom_accent, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			color_mode = excluded.color_mode,
			theme_type = excluded.theme_type,
			preset_id = excluded.preset_id,
			custom_primary = excluded.custom_primary,
			custom_secondary = excluded.custom_secondary,
			custom_accent = excluded.custom_accent,
			updated_at = CURRENT_TIMESTAMP`,
		userID, p.ColorMode, p.ThemeType, p.PresetID, p.CustomPrimary, p.CustomSecondary, p.CustomAccent)
	if err != nil {
		return fmt.Errorf("put preference %s: %w", userID, err)
	}
	return nil
}

func (r *SQLiteRepository) IsPremium(ctx context.Context, userID string) (bool, error) {
	var premium bool
	err := r.db.QueryRowContext(ctx, `SELECT is_premium FROM entitlements WHERE user_id = ?`, userID).Scan(&premium)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get entitlement %s: %w", userID, err)
	}
	return premium, nil
}

func (r *SQLiteRepository) SetPremium(ctx context.Context, userID string, premium bool) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO entitlements (user_id, is_premium, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET is_premium = excluded.is_premium, updated_at = CURRENT_TIMESTAMP`,
		userID, premium)
	if err != nil {
		return fmt.Errorf("set entitlement %s: %w", userID, err)
	}
	return nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
