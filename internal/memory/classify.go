package memory

import (
	"strings"

	"orbit/internal/tools"
)

// ExtractErrorType classifies an error message into a small fixed taxonomy,
// scoped by tool name where the class alone is too coarse. Deterministic and
// pure; unmatched messages fall back to "error:{tool}".
func ExtractErrorType(errorMessage string, failedAction tools.ToolCall) string {
	msg := strings.ToLower(errorMessage)

	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "deadline exceeded"):
		return "timeout"
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		return "rate_limit"
	case strings.Contains(msg, "validation"), strings.Contains(msg, "invalid"), strings.Contains(msg, "missing required"):
		return "validation:" + failedAction.Name
	case strings.Contains(msg, "not found"), strings.Contains(msg, "404"):
		return "not_found"
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "401"):
		return "unauthorized"
	case strings.Contains(msg, "forbidden"), strings.Contains(msg, "403"):
		return "forbidden"
	case strings.Contains(msg, "network"), strings.Contains(msg, "connection"), strings.Contains(msg, "dns"), strings.Contains(msg, "no such host"):
		return "network_error"
	default:
		return "error:" + failedAction.Name
	}
}
