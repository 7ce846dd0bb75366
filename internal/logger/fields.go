package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldUserID        = "user_id"
	FieldRole          = "role"
	FieldJobID         = "job_id"
	FieldApplicationID = "application_id"
	FieldMatchScore    = "match_score"

	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
)

func UserID(id string) zap.Field        { return zap.String(FieldUserID, id) }
func JobID(id string) zap.Field         { return zap.String(FieldJobID, id) }
func ApplicationID(id string) zap.Field { return zap.String(FieldApplicationID, id) }
func MatchScore(score int) zap.Field    { return zap.Int(FieldMatchScore, score) }

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// WithSession tags every entry with the signed-in user. Signed-out sessions add nothing.
func WithSession(logger *zap.Logger, userID, role string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldUserID, Value: userID},
		StringField{Key: FieldRole, Value: role},
	)...)
}

// WithAI tags every entry with the AI provider and model.
func WithAI(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)...)
}
