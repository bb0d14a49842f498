package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logsight/backend/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    model.Severity
	}{
		{"uppercase error", "Connection ERROR: timeout", model.SeverityError},
		{"exception keyword", "caught NullPointerException in handler", model.SeverityError},
		{"warning keyword", "disk space warning", model.SeverityWarning},
		{"warn prefix", "WARN: slow response", model.SeverityWarning},
		{"plain message", "ok", model.SeverityInfo},
		{"empty message", "", model.SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message))
		})
	}
}

func TestClassifyErrorBeatsWarning(t *testing.T) {
	assert.Equal(t, model.SeverityError, Classify("warning: retry produced an error"))
	assert.Equal(t, model.SeverityError, Classify("error while emitting warn notice"))
}
