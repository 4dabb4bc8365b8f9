package config

import "time"

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, channelID, baseURL, apiURL string) *Slack {
	return &Slack{
		botToken:  botToken,
		channelID: channelID,
		baseURL:   baseURL,
		apiURL:    apiURL,
	}
}

// NewAuthForTest creates an Auth config for testing purposes
func NewAuthForTest(secret string, ttl time.Duration) *Auth {
	return &Auth{
		jwtSecret:     secret,
		jwtTTL:        ttl,
		issuer:        "actiontrail",
		adminUsername: "admin",
		adminPassword: "admin123",
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{
		backend:   backend,
		projectID: projectID,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format string) *Logger {
	return &Logger{
		level:  level,
		format: format,
	}
}
