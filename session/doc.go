// Package session provides the in-memory core.Store implementation: lazy
// session creation, by-reference conversation logs, a per-session turn
// lease guaranteeing at most one active orchestration loop per session id,
// and an optional inactivity janitor that expires idle sessions.
package session
