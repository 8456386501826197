package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"reservations/internal/app/policies"
)

// ListingEventsTopic carries listing changes made by the Listing service.
const ListingEventsTopic = "listing.events.v1"

type cloudEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Subject string `json:"subject"`
}

// ListingEventsHandler drops cached listing reads whenever a listing changes
// elsewhere. Suspensions also drop availability reads.
type ListingEventsHandler struct {
	Cache  policies.CacheInvalidator
	Logger *slog.Logger
}

func (h *ListingEventsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("decode listing event: %w", err)
	}
	if evt.Type == "" {
		evt.Type = headerValue(msg, "ce_type")
	}
	if h.Cache == nil {
		return nil
	}
	h.Cache.Invalidate(ctx, policies.BucketListings)
	if strings.HasPrefix(evt.Type, "listing.suspended") {
		h.Cache.Invalidate(ctx, policies.BucketBookings)
	}
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "listing event applied", "type", evt.Type, "listing_id", evt.Subject)
	}
	return nil
}

func headerValue(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}
