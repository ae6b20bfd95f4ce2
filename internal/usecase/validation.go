package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRecordEventInput valida o payload e devolve o timestamp já parseado
// (zero quando ausente), para que quem grava use exatamente o valor validado.
func ValidateRecordEventInput(input RecordEventInput) (time.Time, []ValidationError) {
	var errors []ValidationError

	if strings.TrimSpace(input.EventType) == "" {
		errors = append(errors, ValidationError{"event_type", "is required"})
	} else if !entity.EventType(input.EventType).IsKnown() {
		errors = append(errors, ValidationError{"event_type", "must be one of login, email_open, email_click, whatsapp_reply, chatbot_interaction"})
	}

	if strings.TrimSpace(input.Channel) == "" {
		errors = append(errors, ValidationError{"channel", "is required"})
	} else if !entity.Channel(input.Channel).IsKnown() {
		errors = append(errors, ValidationError{"channel", "must be one of email, whatsapp, chatbot, product"})
	}

	var ts time.Time
	if input.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, input.Timestamp)
		if err != nil {
			errors = append(errors, ValidationError{"timestamp", "must be a valid RFC3339 datetime"})
		} else if parsed.After(time.Now().Add(5 * time.Minute)) {
			// Pequena tolerância para clock skew do emissor
			errors = append(errors, ValidationError{"timestamp", "must not be in the future"})
		} else {
			ts = parsed
		}
	}

	if input.Metadata.EngagementCount < 0 {
		errors = append(errors, ValidationError{"metadata.engagement_count", "must not be negative"})
	}

	return ts, errors
}

func validationErrorsToDomain(errs []ValidationError) *DomainError {
	msg := "validation failed: "
	for _, e := range errs {
		msg += e.Field + " (" + e.Message + "), "
	}
	return &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: strings.TrimSuffix(msg, ", "),
	}
}
