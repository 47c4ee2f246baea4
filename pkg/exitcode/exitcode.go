// Package exitcode provides standardized exit codes for repocheck
package exitcode

// Exit codes for the repocheck CLI
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	ValidationError = 3
	NetworkError    = 4
	ToolNotFound    = 5
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case ValidationError:
		return "Validation error"
	case NetworkError:
		return "Network error"
	case ToolNotFound:
		return "Tool not found"
	default:
		return "Unknown error"
	}
}
