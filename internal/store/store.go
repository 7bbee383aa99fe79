// Package store persists cloud-variant user and workspace records in SQLite.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("store: not found")

// GenerateAPIKey issues a fresh agent credential.
func GenerateAPIKey() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return "vibe_sk_" + hex.EncodeToString(buf)
}

// Store wraps the relay server's database.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path and syncs the
// schema. SQLite is a single-writer store, so the pool is capped at one
// connection.
func Open(path string) (*Store, error) {
	gdb, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := SyncSchema(gdb); err != nil {
		if sqlDB, dbErr := gdb.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return &Store{db: gdb, now: time.Now}, nil
}

func openSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	gdb, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := gdb.Exec(`PRAGMA journal_mode=WAL;`).Error; err != nil {
		return nil, err
	}
	if err := gdb.Exec(`PRAGMA busy_timeout=5000;`).Error; err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return gdb, nil
}

// SyncSchema creates or updates tables and indexes from the models.
func SyncSchema(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is required")
	}
	if err := db.AutoMigrate(&Workspace{}, &User{}, &MessageLog{}); err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_user_created_at ON messages(user_id, created_at DESC);`).Error
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// EnsureUser returns the user for slackUserID, creating one with a fresh
// credential and the given usage limit on first contact. The second return
// reports whether this call provisioned the user.
func (s *Store) EnsureUser(slackUserID, teamID, channelID string, usageLimit int) (*User, bool, error) {
	var user User
	err := s.db.Where("slack_user_id = ?", slackUserID).First(&user).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	now := s.now().Unix()
	user = User{
		SlackUserID:    slackUserID,
		SlackTeamID:    teamID,
		SlackChannelID: channelID,
		APIKey:         GenerateAPIKey(),
		UsageLimit:     usageLimit,
		CreatedAt:      now,
		LastActiveAt:   now,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

// UserByAPIKey looks a user up by credential.
func (s *Store) UserByAPIKey(apiKey string) (*User, error) {
	var user User
	err := s.db.Where("api_key = ?", apiKey).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetAgentConnected flips the user's connectivity flag.
func (s *Store) SetAgentConnected(apiKey string, connected bool) error {
	return s.db.Model(&User{}).
		Where("api_key = ?", apiKey).
		Update("agent_connected", connected).Error
}

// IncrementUsage bumps the user's usage counter and stamps activity,
// returning the new count.
func (s *Store) IncrementUsage(apiKey string) (int, error) {
	res := s.db.Model(&User{}).
		Where("api_key = ?", apiKey).
		Updates(map[string]any{
			"usage_count":    gorm.Expr("usage_count + 1"),
			"last_active_at": s.now().Unix(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	user, err := s.UserByAPIKey(apiKey)
	if err != nil {
		return 0, err
	}
	return user.UsageCount, nil
}

// AllowedPathList decodes the user's serialized trusted-path list.
func (u *User) AllowedPathList() []string {
	if u.AllowedPaths == "" {
		return nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(u.AllowedPaths), &paths); err != nil {
		return nil
	}
	return paths
}

// SetAllowedPaths replaces the user's serialized trusted-path list.
func (s *Store) SetAllowedPaths(apiKey string, paths []string) error {
	encoded, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	return s.db.Model(&User{}).
		Where("api_key = ?", apiKey).
		Update("allowed_paths", string(encoded)).Error
}

// UpsertWorkspace records (or refreshes) an OAuth installation.
func (s *Store) UpsertWorkspace(ws *Workspace) error {
	var existing Workspace
	err := s.db.Where("team_id = ?", ws.TeamID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if ws.InstalledAt == 0 {
			ws.InstalledAt = s.now().Unix()
		}
		return s.db.Create(ws).Error
	}
	if err != nil {
		return err
	}
	ws.ID = existing.ID
	if ws.InstalledAt == 0 {
		ws.InstalledAt = existing.InstalledAt
	}
	return s.db.Save(ws).Error
}

// WorkspaceByTeam looks an installation up by workspace id.
func (s *Store) WorkspaceByTeam(teamID string) (*Workspace, error) {
	var ws Workspace
	err := s.db.Where("team_id = ?", teamID).First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// LogMessage appends one relayed message to the audit trail.
func (s *Store) LogMessage(userID int64, direction, content string) error {
	return s.db.Create(&MessageLog{
		UserID:    userID,
		Direction: direction,
		Content:   content,
		CreatedAt: s.now().Unix(),
	}).Error
}
