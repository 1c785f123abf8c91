package services

import (
	"context"
	"fmt"
	"strings"

	"bilancio/internal/storage"
)

// Credential sources reported by SettingsService.View.
const (
	SourceStored      = "stored"
	SourceEnvironment = "environment"
	SourceNone        = "none"
)

// SettingsView is the client-facing view of the settings. The credential
// itself never leaves the server; only a masked form does.
type SettingsView struct {
	Provider             string `json:"provider"`
	CredentialConfigured bool   `json:"credential_configured"`
	CredentialSource     string `json:"credential_source"`
	CredentialHint       string `json:"credential_hint,omitempty"`
}

// SettingsService keeps the advisory API credential in the key-value store.
// A credential from the environment is used while none is stored.
type SettingsService struct {
	kv       storage.KeyValueStore
	seed     string
	provider string
}

func NewSettingsService(kv storage.KeyValueStore, seed, provider string) *SettingsService {
	return &SettingsService{kv: kv, seed: strings.TrimSpace(seed), provider: provider}
}

// Credential returns the credential to use for advice requests, or "" when
// none is configured.
func (s *SettingsService) Credential(ctx context.Context) (string, error) {
	v, _, err := s.credential(ctx)
	return v, err
}

// SetCredential stores value. A blank value removes the stored credential
// so the environment seed applies again.
func (s *SettingsService) SetCredential(ctx context.Context, value string) error {
	if err := s.kv.Set(ctx, storage.KeyAPICredential, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (s *SettingsService) View(ctx context.Context) (SettingsView, error) {
	v, source, err := s.credential(ctx)
	if err != nil {
		return SettingsView{}, err
	}
	return SettingsView{
		Provider:             s.provider,
		CredentialConfigured: v != "",
		CredentialSource:     source,
		CredentialHint:       mask(v),
	}, nil
}

func (s *SettingsService) credential(ctx context.Context) (string, string, error) {
	stored, ok, err := s.kv.Get(ctx, storage.KeyAPICredential)
	if err != nil {
		return "", "", fmt.Errorf("read credential: %w", err)
	}
	if stored = strings.TrimSpace(stored); ok && stored != "" {
		return stored, SourceStored, nil
	}
	if s.seed != "" {
		return s.seed, SourceEnvironment, nil
	}
	return "", SourceNone, nil
}

// mask keeps the last four characters of long credentials.
func mask(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 8:
		return "****"
	default:
		return "****" + v[len(v)-4:]
	}
}
