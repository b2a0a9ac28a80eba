package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

// Event types accepted on the webhook endpoint.
const (
	EventCartUpdated       = "cart_updated"
	EventCheckoutCompleted = "checkout_completed"
	EventUserSignup        = "user_signup"
)

// Payload is the flat body of every webhook delivery. Which fields are
// required depends on the event type.
type Payload struct {
	EventType   string            `json:"event_type"`
	CartID      string            `json:"cart_id"`
	CustomerRef string            `json:"customer_ref"`
	LineItems   []domain.LineItem `json:"line_items"`
	Timestamp   time.Time         `json:"timestamp"`
}

// parsePayload validates the envelope. Unknown event types are rejected
// so senders notice schema drift instead of silently losing events.
func parsePayload(body []byte) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON payload", domain.ErrValidation)
	}

	switch payload.EventType {
	case EventCartUpdated, EventCheckoutCompleted, EventUserSignup:
	case "":
		return nil, fmt.Errorf("%w: event_type is required", domain.ErrValidation)
	default:
		return nil, fmt.Errorf("%w: unknown event_type %q", domain.ErrValidation, payload.EventType)
	}

	return &payload, nil
}
