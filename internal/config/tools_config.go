package config

import (
	"strconv"
	"strings"
)

type ToolsConfig interface {
	GetDatabaseURL() string
	GetSmtpHost() string
	GetSmtpPort() int
	GetSmtpAccount() string
	GetSmtpPassword() string
	GetMailFrom() string
	GetBraveAPIKey() string
	GetGitHubAPIURL() string
	GetAllowedUsernames() []string
}

type Tools struct{}

var _ ToolsConfig = Tools{}

func (Tools) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

const smtpHostVar = "SMTP_HOST"

func (Tools) GetSmtpHost() string {
	return GetEnv(smtpHostVar, "")
}

func (Tools) GetSmtpPort() int {
	port, err := strconv.Atoi(GetEnv("SMTP_PORT", "587"))
	if err != nil {
		return 587
	}
	return port
}

func (Tools) GetSmtpAccount() string {
	return GetEnv("SMTP_ACCOUNT", "")
}

func (Tools) GetSmtpPassword() string {
	return GetEnv("SMTP_PASSWORD", "")
}

func (t Tools) GetMailFrom() string {
	return GetEnv("MAIL_FROM", t.GetSmtpAccount())
}

func (Tools) GetBraveAPIKey() string {
	return GetEnv("BRAVE_API_KEY", "")
}

func (Tools) GetGitHubAPIURL() string {
	return strings.TrimRight(GetEnv("GITHUB_API_URL", "https://api.github.com"), "/")
}

// GetAllowedUsernames lists the logins allowed to use write and mail tools,
// either bare ("alice") or bound to a provider ("github:alice").
func (Tools) GetAllowedUsernames() []string {
	return GetList("ALLOWED_USERNAMES")
}
