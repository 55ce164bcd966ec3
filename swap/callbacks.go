package swap

// Progress describes how far a swap has advanced. Passed to
// ProgressCallback after every completed granule.
type Progress struct {
	// Granule is the 1-based ordinal of the granule just completed.
	Granule uint32

	// Total is the number of granules in this swap.
	Total uint32

	// BytesSwapped is the payload moved so far, in bytes.
	BytesSwapped uint32

	// Percentage is the completion percentage (0.0 to 100.0).
	Percentage float64
}

// ProgressCallback is called after each completed granule.
// Implementations should return quickly; the swap blocks on them.
type ProgressCallback func(Progress)

// Logger is an optional logging interface for engine diagnostics.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Warn(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Warn logs a warning with optional key-value pairs
	Warn(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

// nopLogger discards everything. Installed when no logger is provided.
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
