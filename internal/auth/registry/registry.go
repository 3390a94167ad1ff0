// Package registry holds the pluggable user-registry and credential-check
// collaborators the session state machine depends on.
package registry

import (
	"context"
	"strings"
)

// StaticRegistry answers the signup uniqueness check from a fixed,
// case-insensitive email list. It stands in for a real user directory; swap
// in PostgresRegistry for deployments with one.
type StaticRegistry struct {
	reserved map[string]struct{}
}

// NewStaticRegistry creates a registry from a list of reserved emails
func NewStaticRegistry(emails []string) *StaticRegistry {
	reserved := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		reserved[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	return &StaticRegistry{reserved: reserved}
}

// EmailTaken reports whether the email is on the reserved list
func (r *StaticRegistry) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, taken := r.reserved[strings.ToLower(strings.TrimSpace(email))]
	return taken, nil
}
