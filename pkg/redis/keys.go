package redis

import "strings"

const defaultNamespace = "sf"

// Keyspace prefixes every key with the configured namespace so several
// deployments can share one Redis database.
type Keyspace struct {
	Namespace string
}

func (k Keyspace) key(parts ...string) string {
	var b strings.Builder
	if k.Namespace == "" {
		b.WriteString(defaultNamespace)
	} else {
		b.WriteString(k.Namespace)
	}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (k Keyspace) RateLimitKey(scope string) string { return k.key("rate_limit", scope) }

func (k Keyspace) SessionKey(sessionID string) string { return k.key("session", sessionID) }

// FlashKey holds one pending flash message of kind for a session.
func (k Keyspace) FlashKey(sessionID, kind string) string { return k.key("flash", sessionID, kind) }

// Channel names a pub/sub channel inside the namespace.
func (k Keyspace) Channel(name string) string { return k.key("events", name) }
