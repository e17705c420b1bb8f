package chat

import (
	"context"
	"strconv"

	"github.com/inkos/inkd/internal/db"
)

// Rollover threshold settings, re-read from app_settings at the start of
// every append so changes apply to in-flight conversations.
const (
	SettingWarnRatio  = "ai.rollover.warn_ratio"
	SettingForceRatio = "ai.rollover.force_ratio"

	defaultWarnRatio  = 0.75
	defaultForceRatio = 0.9
)

// Config holds the rollover thresholds as ratios of the context window
type Config struct {
	WarnRatio  float64 `json:"warn_ratio"`
	ForceRatio float64 `json:"force_ratio"`
}

// LoadConfig reads the thresholds, falling back to defaults on unset or
// nonsensical values (warn must stay below force, both in (0, 1]).
func LoadConfig(ctx context.Context, store *db.Store) (Config, error) {
	c := Config{WarnRatio: defaultWarnRatio, ForceRatio: defaultForceRatio}

	if raw, err := store.GetSetting(ctx, SettingWarnRatio); err != nil {
		return c, err
	} else if v, perr := strconv.ParseFloat(raw, 64); perr == nil && v > 0 && v <= 1 {
		c.WarnRatio = v
	}
	if raw, err := store.GetSetting(ctx, SettingForceRatio); err != nil {
		return c, err
	} else if v, perr := strconv.ParseFloat(raw, 64); perr == nil && v > 0 && v <= 1 {
		c.ForceRatio = v
	}

	if c.WarnRatio >= c.ForceRatio {
		c.WarnRatio = defaultWarnRatio
		c.ForceRatio = defaultForceRatio
	}
	return c, nil
}

// SaveConfig persists the thresholds
func SaveConfig(ctx context.Context, store *db.Store, c Config) error {
	if err := store.SetSetting(ctx, SettingWarnRatio, strconv.FormatFloat(c.WarnRatio, 'f', -1, 64)); err != nil {
		return err
	}
	return store.SetSetting(ctx, SettingForceRatio, strconv.FormatFloat(c.ForceRatio, 'f', -1, 64))
}
