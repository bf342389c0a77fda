package config

import (
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// ResolveActor returns the configured actor, else the subject of the API
// token, else $USER, else "unknown". The token is not verified here; the
// record store does that.
func (c *Config) ResolveActor() string {
	if c.Actor != "" {
		return c.Actor
	}
	if sub := tokenSubject(c.Token); sub != "" {
		return sub
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

func tokenSubject(token string) string {
	if token == "" {
		return ""
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	return claims.Subject
}
