// Package auth defines the authentication collaborators the ingestion core
// depends on. The core never validates credentials itself: it receives a
// resolved Principal and threads it explicitly through the pipeline.
package auth

import (
	"context"
)

// Principal identifies an authenticated caller.
type Principal struct {
	UserID string
}

// Authenticator resolves a request credential (e.g. a bearer token) to a
// principal. A false return means the credential is absent or unknown; the
// request proceeds unauthenticated where that is allowed.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (Principal, bool)
}

// Directory maps a principal to the single patient bound to it. A false
// return means no patient is bound to that principal.
type Directory interface {
	PatientFor(ctx context.Context, p Principal) (string, bool)
}

// StaticTokens is the built-in provider: bearer tokens bound to patients via
// configuration. In this provider the account identifier is the bound patient
// identifier; a real identity provider would substitute its own user ids.
type StaticTokens struct {
	byToken map[string]string
}

// NewStaticTokens builds a provider from token → patient bindings.
func NewStaticTokens(bindings map[string]string) *StaticTokens {
	byToken := make(map[string]string, len(bindings))
	for tok, patient := range bindings {
		byToken[tok] = patient
	}
	return &StaticTokens{byToken: byToken}
}

// Authenticate resolves a bearer token to its principal.
func (s *StaticTokens) Authenticate(_ context.Context, credential string) (Principal, bool) {
	if credential == "" {
		return Principal{}, false
	}
	patient, ok := s.byToken[credential]
	if !ok {
		return Principal{}, false
	}
	return Principal{UserID: patient}, true
}

// PatientFor returns the patient bound to the principal.
func (s *StaticTokens) PatientFor(_ context.Context, p Principal) (string, bool) {
	if p.UserID == "" {
		return "", false
	}
	return p.UserID, true
}
