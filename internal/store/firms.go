package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"airdesk/internal/firm"
)

// GetFirmSettings loads a firm's settings. Firms that never saved settings
// get defaults and found=false.
func (s *Store) GetFirmSettings(ctx context.Context, firmID string) (firm.Settings, bool, error) {
	firmID = strings.TrimSpace(firmID)
	var raw string
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT settings_json FROM firm_settings WHERE firm_id = ?`, firmID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return firm.Defaults(firmID), false, nil
	}
	if err != nil {
		return firm.Settings{}, false, fmt.Errorf("get firm settings: %w", err)
	}
	settings := firm.Defaults(firmID)
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return firm.Settings{}, false, fmt.Errorf("decode firm settings: %w", err)
	}
	settings.FirmID = firmID
	return settings, true, nil
}

// SaveFirmSettings validates and upserts a firm's settings. Validation
// failures are returned unwrapped so callers can report the field errors.
func (s *Store) SaveFirmSettings(ctx context.Context, settings *firm.Settings) error {
	if settings == nil {
		return errors.New("settings are nil")
	}
	settings.Normalize()
	if settings.FirmID == "" {
		return errors.New("save firm settings: firm id required")
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal firm settings: %w", err)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO firm_settings (firm_id, settings_json, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(firm_id) DO UPDATE SET settings_json = excluded.settings_json, updated_at = excluded.updated_at`,
		settings.FirmID,
		string(payload),
		formatTime(settings.UpdatedAt),
	); err != nil {
		return fmt.Errorf("save firm settings: %w", err)
	}
	return nil
}

// SetVoiceAssistantID records the provisioned voice agent for a firm without
// re-validating the rest of its settings.
func (s *Store) SetVoiceAssistantID(ctx context.Context, firmID, assistantID string) error {
	settings, _, err := s.GetFirmSettings(ctx, firmID)
	if err != nil {
		return err
	}
	settings.VoiceAssistantID = strings.TrimSpace(assistantID)
	settings.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal firm settings: %w", err)
	}
	return s.execWithoutResultRetry(
		ctx,
		`INSERT INTO firm_settings (firm_id, settings_json, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(firm_id) DO UPDATE SET settings_json = excluded.settings_json, updated_at = excluded.updated_at`,
		settings.FirmID,
		string(payload),
		formatTime(settings.UpdatedAt),
	)
}
