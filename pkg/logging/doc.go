// Package logging provides structured, subsystem-tagged logging for the
// bridge and gateway binaries.
//
// Call InitForCLI once at process start, then log through the package-level
// Debug/Info/Warn/Error functions, each tagged with a subsystem string
// ("PluginBridge", "OAuthServer", "UpstreamRouter", ...) for filtering.
// Audit emits a parallel stream of security-relevant events (token issuance,
// revocation, admin API access) at info level with an [AUDIT] prefix.
package logging
