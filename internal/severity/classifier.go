package severity

import (
	"strings"

	"github.com/logsight/backend/internal/model"
)

// Classify assigns a severity from the message text alone. The match is a
// case-insensitive substring check; the error keywords win over the warning
// keyword when both appear in one message.
func Classify(message string) model.Severity {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "error") || strings.Contains(lower, "exception") {
		return model.SeverityError
	}
	if strings.Contains(lower, "warn") {
		return model.SeverityWarning
	}
	return model.SeverityInfo
}
