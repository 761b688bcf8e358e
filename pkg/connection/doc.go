// Package connection arbitrates which device owns the head unit.
//
// A Manager races every configured device waiter for the next candidate
// device and builds exactly one session per accepted transport through a
// SessionFactory. Discovery keeps running while a session is up, so a
// newly attached device supersedes a stale connection: the old session
// is fully stopped before the replacement is built. Discovery failures
// are retried with exponential backoff; the aborted kind ends discovery
// without a retry.
package connection
