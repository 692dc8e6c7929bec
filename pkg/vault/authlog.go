package vault

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kompromat/kompromat/pkg/storage"
	"github.com/kompromat/kompromat/pkg/types"
)

const maxUserAgentLength = 200

// AuthenticationLog returns the retained authentication attempts, newest
// first. key proves the caller holds a valid session.
func (v *Vault) AuthenticationLog(ctx context.Context, clientID string, key MasterKey) ([]types.AuthenticationLogEntry, error) {
	if err := v.checkBlocked(clientID); err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, ErrNotAuthenticated
	}

	now := v.now()
	var entries []types.AuthenticationLogEntry
	err := v.store.View(ctx, func(doc *storage.Document) error {
		entries = pruneLog(doc.AuthenticationLog, now, v.opts.AuthLogRetention)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

// recordLogin appends an entry for an authentication attempt. A failure to
// write the log does not change the outcome of the attempt.
func (v *Vault) recordLogin(ctx context.Context, description string, success bool) {
	now := v.now()
	entry := types.AuthenticationLogEntry{
		Timestamp:    now.UnixMilli(),
		IsSuccessful: success,
		Description:  description,
	}

	err := v.store.Update(ctx, func(doc *storage.Document) error {
		doc.AuthenticationLog = appendLogEntry(doc.AuthenticationLog, entry, now, v.opts.AuthLogRetention)
		return nil
	})
	if err != nil {
		v.logger.Warn().Err(err).Msg("Failed to write authentication log entry")
	}
}

func appendLogEntry(log []types.AuthenticationLogEntry, entry types.AuthenticationLogEntry, now time.Time, retention time.Duration) []types.AuthenticationLogEntry {
	return pruneLog(append(log, entry), now, retention)
}

// pruneLog drops entries older than retention
func pruneLog(log []types.AuthenticationLogEntry, now time.Time, retention time.Duration) []types.AuthenticationLogEntry {
	cutoff := now.Add(-retention).UnixMilli()

	kept := make([]types.AuthenticationLogEntry, 0, len(log))
	for _, entry := range log {
		if entry.Timestamp > cutoff {
			kept = append(kept, entry)
		}
	}
	return kept
}

func loginDescription(clientID, userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		userAgent = "unknown device"
	}
	return fmt.Sprintf("Login from %s on %s", clientID, truncateUTF8(userAgent, maxUserAgentLength))
}

// truncateUTF8 cuts s to at most n bytes without splitting a character
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
