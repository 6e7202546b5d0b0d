// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (InfoKV, WarnKV, ErrorKV, etc.).
//
// Packaging steps accept a context and extract the logger from it, so a run id
// or version attached once shows up on every line below it.
package logger
