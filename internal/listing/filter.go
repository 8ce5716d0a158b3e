package listing

import (
	"strings"

	"github.com/m3rciful/dirbot/internal/domain"
)

// Matches reports whether acc matches the search term. Matching is
// case-insensitive on id substring, display name substring or exact id.
func Matches(acc domain.Account, term string) bool {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return false
	}
	id := strings.ToLower(acc.ID)
	if id == t || strings.Contains(id, t) {
		return true
	}
	if acc.DisplayName != nil && strings.Contains(strings.ToLower(*acc.DisplayName), t) {
		return true
	}
	return false
}

// Search keeps the accounts matching term, preserving order.
func Search(accounts []domain.Account, term string) []domain.Account {
	out := make([]domain.Account, 0, len(accounts))
	for _, acc := range accounts {
		if Matches(acc, term) {
			out = append(out, acc)
		}
	}
	return out
}

// IsDeactivationCandidate reports whether acc may be offered as a
// deactivation target. Admins and already deactivated accounts never are.
func IsDeactivationCandidate(acc domain.Account) bool {
	return !acc.Deactivated && !acc.IsAdmin
}

// DeactivationCandidates keeps the accounts eligible for deactivation, preserving order.
func DeactivationCandidates(accounts []domain.Account) []domain.Account {
	out := make([]domain.Account, 0, len(accounts))
	for _, acc := range accounts {
		if IsDeactivationCandidate(acc) {
			out = append(out, acc)
		}
	}
	return out
}
