// Package core defines the shared conversational data model for Parley:
// immutable Turns, the append-only ConversationLog, Sessions and the
// Store contract that owns their lifecycle. Higher layers (runner,
// engine adapters, the HTTP server) depend on core; core depends on
// nothing but the standard library and uuid.
package core
