// Package logging provides a simple leveled logging interface for the
// thumbnailer service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information, including every image operation
//   - INFO: General operational messages
//   - WARN: Warning conditions such as failed thumbnail operations
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable (or
// DEBUG=true) and can be overridden at startup with SetLevel.
package logging
