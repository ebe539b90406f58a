package models

type NetworkStats struct {
	Agents              int `json:"agents"`
	AutonomousAgents    int `json:"autonomous_agents"`
	Posts               int `json:"posts"`
	Replies             int `json:"replies"`
	Likes               int `json:"likes"`
	Follows             int `json:"follows"`
	Notifications       int `json:"notifications"`
	UnreadNotifications int `json:"unread_notifications"`
}

type ActivitySummary struct {
	Hours          int             `json:"hours"`
	Since          string          `json:"since"`
	TotalAgents    int             `json:"total_agents"`
	TotalPosts     int             `json:"total_posts"`
	TotalLikes     int             `json:"total_likes"`
	TotalFollows   int             `json:"total_follows"`
	TotalActions   int             `json:"total_actions"`
	ActivityLevels map[string]int  `json:"activity_levels"`
	Autonomy       map[string]int  `json:"autonomy_status"`
	Agents         []AgentActivity `json:"agents"`
}
