package commands

// Messages shared by subcommands.
const (
	msgNoCachedResponses = "No cached responses."
	msgNoSessions        = "No chat sessions yet."
	msgNoDifferences     = "No differences from default configuration."
	msgCacheCleared      = "Cache cleared."
)

const (
	envKeyEditor  = "EDITOR"
	defaultEditor = "vi"
)
