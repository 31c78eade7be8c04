package store

import (
	"context"

	"github.com/sadopc/studylog/internal/apperrors"
)

// GetSettings returns the settings row, creating it with defaults on first access.
func (s *Store) GetSettings(ctx context.Context) (*Settings, error) {
	d := DefaultSettings()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO settings
			(id, work_duration, short_break_duration, long_break_duration,
			 sessions_before_long_break, sound_enabled, dark_mode)
		VALUES (1, ?, ?, ?, ?, ?, ?)`,
		d.WorkDuration, d.ShortBreakDuration, d.LongBreakDuration,
		d.SessionsBeforeLongBreak, boolInt(d.SoundEnabled), boolInt(d.DarkMode),
	)
	if err != nil {
		return nil, apperrors.Storage("init settings", err)
	}

	st := &Settings{}
	var sound, dark int
	err = s.db.QueryRowContext(ctx, `
		SELECT work_duration, short_break_duration, long_break_duration,
		       sessions_before_long_break, sound_enabled, dark_mode
		FROM settings WHERE id = 1`,
	).Scan(&st.WorkDuration, &st.ShortBreakDuration, &st.LongBreakDuration,
		&st.SessionsBeforeLongBreak, &sound, &dark)
	if err != nil {
		return nil, apperrors.Storage("get settings", err)
	}
	st.SoundEnabled = sound == 1
	st.DarkMode = dark == 1
	return st, nil
}

// UpdateSettings merges patch into the singleton row. Last write wins.
func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) (*Settings, error) {
	current, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	next := patch.apply(*current)
	if err := validateSettings(next); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE settings SET
			work_duration = ?, short_break_duration = ?, long_break_duration = ?,
			sessions_before_long_break = ?, sound_enabled = ?, dark_mode = ?
		WHERE id = 1`,
		next.WorkDuration, next.ShortBreakDuration, next.LongBreakDuration,
		next.SessionsBeforeLongBreak, boolInt(next.SoundEnabled), boolInt(next.DarkMode),
	)
	if err != nil {
		return nil, apperrors.Storage("update settings", err)
	}
	return &next, nil
}
