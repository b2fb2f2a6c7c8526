package rotor

import (
	"os"
	"os/user"
)

// CurrentUser resolves the identity recorded in performedBy fields. It
// prefers the OS account name and falls back to the USER environment
// variable, then to "unknown".
func CurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
