package config

import "time"

type OAuthConfig interface {
	GetAuthCodeTimeout() time.Duration
	GetAccessTokenExpiry() time.Duration
	GetStateTTL() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetAuthCodeTimeout is how long a gateway-issued authorization code can be redeemed.
func (OAuth) GetAuthCodeTimeout() time.Duration {
	return GetDuration("AUTH_CODE_TTL", 5*time.Minute)
}

func (OAuth) GetAccessTokenExpiry() time.Duration {
	return GetDuration("ACCESS_TOKEN_TTL", 1*time.Hour)
}

// GetStateTTL bounds the time a user can spend at the upstream provider.
func (OAuth) GetStateTTL() time.Duration {
	return GetDuration("STATE_TTL", 10*time.Minute)
}
