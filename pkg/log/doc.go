// Package log provides structured protocol logging for the projection
// session engine.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, messenger, session,
// service). It is separate from operational logging (slog) - protocol
// capture provides a complete machine-readable event trace for debugging
// and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	logger, _ := log.NewFileLogger("/var/log/headunit/session.plog")
//
//	// Both: use MultiLogger
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: raw frame traffic (FrameEvent)
//   - Messenger: complete channel messages (MessageEvent)
//   - Session/service: state changes (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files use CBOR encoding with .plog extension. The headunit-log CLI
// tool provides viewing, filtering, and statistics.
package log
