package config

import (
	"strconv"
	"time"
)

type SlackConfig interface {
	GetSlackBaseURL() string
	GetSlackToken() string
	GetSlackCacheTTL() time.Duration
	GetSlackCacheSize() uint64
}

type Slack struct{}

var _ SlackConfig = Slack{}

func (Slack) GetSlackBaseURL() string {
	return GetEnv("SLACK_BASE_URL", "https://slack.com/api")
}

func (Slack) GetSlackToken() string {
	return GetEnv("SLACK_TOKEN", "")
}

// GetSlackCacheTTL is the idle expiry for the user-id and conversation
// caches, measured from last access.
func (Slack) GetSlackCacheTTL() time.Duration {
	minutes, err := strconv.Atoi(GetEnv("SLACK_CACHE_TTL_MINUTES", "60"))
	if err != nil {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

func (Slack) GetSlackCacheSize() uint64 {
	size, err := strconv.ParseUint(GetEnv("SLACK_CACHE_SIZE", "100"), 10, 64)
	if err != nil {
		size = 100
	}
	return size
}
