// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration and runtime metrics for webnet.
//
// Provides:
//   - Config with defaults, TOML loading and validation
//   - Store, a concurrent-safe holder that re-applies settings on reload
//   - Metrics, prometheus collectors observed by connections and acceptors
package control
