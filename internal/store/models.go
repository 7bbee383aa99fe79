package store

// Workspace is one chat-platform workspace that installed the bot via OAuth.
type Workspace struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement"`
	TeamID          string `gorm:"column:team_id;uniqueIndex;not null"`
	TeamName        string `gorm:"column:team_name;not null;default:''"`
	BotToken        string `gorm:"column:bot_token;not null;default:''"`
	BotUserID       string `gorm:"column:bot_user_id;not null;default:''"`
	InstallerUserID string `gorm:"column:installer_user_id;not null;default:''"`
	InstalledAt     int64  `gorm:"column:installed_at;not null;default:0"`
}

func (Workspace) TableName() string { return "workspaces" }

// User is one chat user with an issued agent credential.
type User struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	SlackUserID    string `gorm:"column:slack_user_id;uniqueIndex;not null"`
	SlackTeamID    string `gorm:"column:slack_team_id;index;not null;default:''"`
	SlackChannelID string `gorm:"column:slack_channel_id;not null;default:''"`
	DisplayName    string `gorm:"column:display_name;not null;default:''"`

	APIKey string `gorm:"column:api_key;uniqueIndex;not null"`

	AgentConnected bool `gorm:"column:agent_connected;not null;default:false"`

	UsageCount int `gorm:"column:usage_count;not null;default:0"`
	UsageLimit int `gorm:"column:usage_limit;not null;default:100"`

	// AllowedPaths is a JSON-encoded list of permanently trusted paths.
	AllowedPaths string `gorm:"column:allowed_paths;not null;default:''"`

	CreatedAt    int64 `gorm:"column:created_at;not null;default:0"`
	LastActiveAt int64 `gorm:"column:last_active_at;not null;default:0"`
}

func (User) TableName() string { return "users" }

// MessageLog records one relayed message for auditing.
type MessageLog struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64  `gorm:"column:user_id;index;not null"`
	Direction string `gorm:"column:direction;not null"`
	Content   string `gorm:"column:content;not null;default:''"`
	CreatedAt int64  `gorm:"column:created_at;not null;default:0"`
}

func (MessageLog) TableName() string { return "messages" }

const (
	DirectionUserToAgent = "user_to_agent"
	DirectionAgentToUser = "agent_to_user"
)
