// Package clinic holds the editable clinic profile shown on the public site
// and used in confirmation emails.
package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const settingsKey = "clinic:settings"

// Settings is the clinic profile. Edits from the admin panel land here and
// flow into the public pages and outgoing emails.
type Settings struct {
	Name        string `json:"name"`
	Doctor      string `json:"doctor"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	StaffEmail  string `json:"staff_email,omitempty"`
	NotifyStaff bool   `json:"notify_staff"`
}

// Validate checks an incoming settings payload.
func (s *Settings) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return fmt.Errorf("clinic: name is required")
	}
	s.Doctor = strings.TrimSpace(s.Doctor)
	s.Address = strings.TrimSpace(s.Address)
	s.Phone = strings.TrimSpace(s.Phone)
	s.StaffEmail = strings.ToLower(strings.TrimSpace(s.StaffEmail))
	if s.NotifyStaff && s.StaffEmail == "" {
		return fmt.Errorf("clinic: staff email is required when staff notices are on")
	}
	return nil
}

// Store persists the settings in Redis, falling back to defaults when
// nothing has been saved yet.
type Store struct {
	redis    *redis.Client
	defaults Settings
}

// NewStore creates a settings store. defaults comes from the environment
// and is served until an admin saves a profile.
func NewStore(redisClient *redis.Client, defaults Settings) *Store {
	return &Store{redis: redisClient, defaults: defaults}
}

// Current returns the saved settings, or the defaults when none exist or
// Redis is unreachable.
func (s *Store) Current(ctx context.Context) (Settings, error) {
	if s.redis == nil {
		return s.defaults, nil
	}
	data, err := s.redis.Get(ctx, settingsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return s.defaults, nil
		}
		return s.defaults, fmt.Errorf("clinic: load settings: %w", err)
	}
	var out Settings
	if err := json.Unmarshal(data, &out); err != nil {
		return s.defaults, fmt.Errorf("clinic: corrupt settings: %w", err)
	}
	return out, nil
}

// Save replaces the stored settings.
func (s *Store) Save(ctx context.Context, settings Settings) error {
	if s.redis == nil {
		return fmt.Errorf("clinic: settings store not configured")
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("clinic: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("clinic: save settings: %w", err)
	}
	return nil
}
