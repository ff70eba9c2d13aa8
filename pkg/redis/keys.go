package redis

import "strings"

const defaultKeyPrefix = "od"

// Key families. Every key is "<prefix>:<family>:<parts...>".
const (
	familyIdempotency = "idempotency"
	familyLock        = "lock"
	familyGuard       = "guard"
)

// Keyspace builds namespaced keys so several deployments can share one Redis.
type Keyspace struct {
	prefix string
}

// NewKeyspace returns a keyspace rooted at prefix, "od" when blank.
func NewKeyspace(prefix string) Keyspace {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return Keyspace{prefix: prefix}
}

// IdempotencyKey scopes a replay record to the caller and route.
func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.join(familyIdempotency, scope, id)
}

// LockKey names a distributed lock.
func (k Keyspace) LockKey(name string) string {
	return k.join(familyLock, name)
}

// GuardKey names a short-lived once-only guard, e.g. invoice materialization
// per order.
func (k Keyspace) GuardKey(scope, id string) string {
	return k.join(familyGuard, scope, id)
}

func (k Keyspace) join(family string, parts ...string) string {
	root := k.prefix
	if root == "" {
		root = defaultKeyPrefix
	}
	var b strings.Builder
	b.WriteString(root)
	b.WriteByte(':')
	b.WriteString(family)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
