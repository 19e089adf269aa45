package settingsstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/offlinemirror/internal/database/settings"
	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/state"
)

// SyncSettings persists the offline sync settings and exposes each one as
// an observable cell. Writes go through this type only.
type SyncSettings struct {
	repo *settings.Repository

	lastSync   *state.Cell[time.Time]
	offline    *state.Cell[bool]
	activeUser *state.Cell[string]
}

// Load reads the persisted settings into fresh cells.
func Load(ctx context.Context, repo *settings.Repository) (*SyncSettings, error) {
	s := &SyncSettings{repo: repo}

	lastSync, err := s.readTime(ctx, entities.SettingKeyDataSyncDate)
	if err != nil {
		return nil, err
	}
	offline, err := s.readString(ctx, entities.SettingKeyOfflineMode)
	if err != nil {
		return nil, err
	}
	activeUser, err := s.readString(ctx, entities.SettingKeyActiveUserID)
	if err != nil {
		return nil, err
	}

	s.lastSync = state.NewCell(lastSync)
	s.offline = state.NewCell(offline == "true")
	s.activeUser = state.NewCell(activeUser)
	return s, nil
}

// LastSync is the start time of the last completed reconciliation pass.
func (s *SyncSettings) LastSync() time.Time {
	return s.lastSync.Get()
}

// SetLastSync persists t unless it is older than the stored value.
func (s *SyncSettings) SetLastSync(ctx context.Context, t time.Time) error {
	if t.Before(s.lastSync.Get()) {
		return nil
	}
	if err := s.repo.SetSetting(ctx, entities.SettingKeyDataSyncDate, t.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("save last sync date: %w", err)
	}
	s.lastSync.Set(t)
	return nil
}

func (s *SyncSettings) LastSyncCell() *state.Cell[time.Time] {
	return s.lastSync
}

func (s *SyncSettings) OfflineMode() bool {
	return s.offline.Get()
}

func (s *SyncSettings) SetOfflineMode(ctx context.Context, offline bool) error {
	if err := s.repo.SetSetting(ctx, entities.SettingKeyOfflineMode, strconv.FormatBool(offline)); err != nil {
		return fmt.Errorf("save offline mode: %w", err)
	}
	s.offline.Set(offline)
	return nil
}

func (s *SyncSettings) OfflineModeCell() *state.Cell[bool] {
	return s.offline
}

// ActiveUserID is the local user whose mirror is browsed offline.
func (s *SyncSettings) ActiveUserID() string {
	return s.activeUser.Get()
}

func (s *SyncSettings) SetActiveUserID(ctx context.Context, userID string) error {
	if err := s.repo.SetSetting(ctx, entities.SettingKeyActiveUserID, userID); err != nil {
		return fmt.Errorf("save active user: %w", err)
	}
	s.activeUser.Set(userID)
	return nil
}

func (s *SyncSettings) ActiveUserCell() *state.Cell[string] {
	return s.activeUser
}

// GetDownloadDir returns the download root (database > env > fallback).
func (s *SyncSettings) GetDownloadDir(ctx context.Context, fallback string) string {
	setting, err := s.repo.GetSetting(ctx, entities.SettingKeyDownloadDir)
	if err == nil && setting.Value != "" {
		return setting.Value
	}
	if envDir := os.Getenv("DOWNLOAD_DIR"); envDir != "" {
		return envDir
	}
	return fallback
}

func (s *SyncSettings) SetDownloadDir(ctx context.Context, dir string) error {
	return s.repo.SetSetting(ctx, entities.SettingKeyDownloadDir, dir)
}

func (s *SyncSettings) readString(ctx context.Context, key string) (string, error) {
	setting, err := s.repo.GetSetting(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return setting.Value, nil
}

func (s *SyncSettings) readTime(ctx context.Context, key string) (time.Time, error) {
	raw, err := s.readString(ctx, key)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse setting %s: %w", key, err)
	}
	return t, nil
}
