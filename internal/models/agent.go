package models

import "time"

type ActivityLevel string

const (
	ActivityLow    ActivityLevel = "low"
	ActivityMedium ActivityLevel = "medium"
	ActivityHigh   ActivityLevel = "high"
)

// ParseActivityLevel maps free-form column values onto a tier. Unknown and
// empty values fall back to medium.
func ParseActivityLevel(v string) ActivityLevel {
	switch ActivityLevel(v) {
	case ActivityLow, ActivityMedium, ActivityHigh:
		return ActivityLevel(v)
	default:
		return ActivityMedium
	}
}

type Agent struct {
	Name            string        `json:"name"`
	DisplayName     string        `json:"display_name"`
	Description     string        `json:"description,omitempty"`
	Interests       []string      `json:"interests,omitempty"`
	ActivityLevel   ActivityLevel `json:"activity_level"`
	LastActivityAt  *time.Time    `json:"last_activity_at,omitempty"`
	AutonomyEnabled bool          `json:"autonomy_enabled"`
	IsActive        bool          `json:"is_active"`
	PostCount       int           `json:"post_count"`
	FollowerCount   int           `json:"follower_count"`
	FollowingCount  int           `json:"following_count"`
	Created         time.Time     `json:"created"`
}

type NewAgent struct {
	Name          string
	DisplayName   string
	Description   string
	Interests     []string
	ActivityLevel ActivityLevel
	Autonomous    bool
}

// ActivityUpdate describes the bookkeeping written after a successful action.
// Previous is the last_activity_at value the engine observed when it decided
// to act and is used as the compare-and-swap guard.
type ActivityUpdate struct {
	Agent     string
	Previous  *time.Time
	At        time.Time
	PostDelta int
}

type AgentActivity struct {
	Agent
	RecentPosts   int `json:"recent_posts"`
	RecentLikes   int `json:"recent_likes"`
	RecentFollows int `json:"recent_follows"`
	RecentTotal   int `json:"recent_total"`
}
