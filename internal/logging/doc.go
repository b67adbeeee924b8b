// Package logging provides structured logging for the oodb index engine.
//
// # Overview
//
// Loggers accept a message and alternating key/value pairs:
//
//	log := logging.New(logging.Config{Level: "debug", Format: "json", Output: "stderr"})
//	log.Info("store opened", "path", path, "page_size", 4096)
//
// Storage components take a Logger at construction and tag it with their
// component name:
//
//	chLog := log.WithComponent("channel")
//	chLog.Debug("flush", "generation", 7, "pages", 12)
//
// Library code that receives a nil Logger uses OrNop, so logging is always
// optional for callers:
//
//	log = logging.OrNop(log)
//
// # Formats
//
// Text output renders one line per entry with fields sorted by key:
//
//	2026-01-02T15:04:05Z [debug] channel: flush generation=7 pages=12
//
// JSON output renders one object per line with "ts", "level", "msg" and,
// when set, "component" alongside the fields.
package logging
