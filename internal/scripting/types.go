package scripting

import (
	"time"
)

// DefaultRequirePath resolves "a.b" to a/b.js, then a/b/index.js.
const DefaultRequirePath = "?.js;?/index.js"

// Config defines runtime configuration
type Config struct {
	Timeout          time.Duration // Execution timeout
	EnableConsole    bool          // Allow console.log/warn/error
	MaxCallStackSize int           // Zero keeps the goja default
	RequirePath      string        // Module search path; empty keeps the filesystem's
}

// Result holds execution result
type Result struct {
	Value    interface{}   // Return value
	Console  []LogEntry    // Console output
	Duration time.Duration // Execution time
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, warn, error, info
	Message string    // Log message
	Time    time.Time // Timestamp
}

// DefaultConfig returns the default runtime configuration
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		EnableConsole:    true,
		MaxCallStackSize: 1024,
		RequirePath:      DefaultRequirePath,
	}
}
