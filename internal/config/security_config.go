package config

type SecurityConfig interface {
	GetCookieSecret() []byte
	GetSecureCookies() bool
	GetVerifyIDTokens() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetCookieSecret is the root secret for the approval cookie and signed state.
func (Security) GetCookieSecret() []byte {
	return []byte(GetEnv("COOKIE_ENCRYPTION_KEY", ""))
}

// GetSecureCookies defaults to true outside DEV.
func (Security) GetSecureCookies() bool {
	return GetBool("SECURE_COOKIES", EnvVars{}.GetEnv() != "DEV")
}

func (Security) GetVerifyIDTokens() bool {
	return GetBool("VERIFY_ID_TOKENS", true)
}
