package core

import (
	"errors"
	"strings"
)

// Storage keys for persisted review values.
const (
	KeyFirstUse          = "review.first_use"
	KeyReviewed          = "review.reviewed"
	KeyLastReminded      = "review.last_reminded_at"
	KeyDaysUntilRequest  = "review.days_until_request"
	KeyDaysUntilRemember = "review.days_until_remember"
	KeyDevelopmentMode   = "review.development_mode"
	KeyAppID             = "review.app_id"
	KeyLocale            = "review.locale"
)

// StateKeys lists every key owned by a reviewer.
var StateKeys = []string{
	KeyFirstUse,
	KeyReviewed,
	KeyLastReminded,
	KeyDaysUntilRequest,
	KeyDaysUntilRemember,
	KeyDevelopmentMode,
	KeyAppID,
	KeyLocale,
}

// NamespacedKey scopes key to an installation. An empty namespace leaves the
// key unchanged.
func NamespacedKey(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

// NormalizeInstallationID trims and lowercases installation identifiers and
// rejects characters that would break key namespacing.
func NormalizeInstallationID(id string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(id))
	if s == "" {
		return "", errors.New("empty installation id")
	}
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.' {
			continue
		}
		return "", errors.New("invalid installation id")
	}
	return s, nil
}
