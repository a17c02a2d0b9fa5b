package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/localserve/service-booking/internal/contract/events"
	bookingDomain "github.com/localserve/service-booking/internal/domain/booking"
	"github.com/localserve/service-booking/internal/domain/notification"
)

// announcer emits the notifications and domain events that follow a
// committed transition. Nothing it does can fail the transition.
type announcer struct {
	notifier  notification.Notifier
	publisher EventPublisher
}

var eventTypeByEffect = map[bookingDomain.Effect]string{
	bookingDomain.EffectAssigned:          events.BookingAssigned,
	bookingDomain.EffectAccepted:          events.BookingAccepted,
	bookingDomain.EffectProviderCancelled: events.BookingProviderCancelled,
	bookingDomain.EffectCompleted:         events.BookingCompleted,
	bookingDomain.EffectCancelled:         events.BookingCancelled,
	bookingDomain.EffectOverridden:        events.BookingOverridden,
}

// announce notifies the affected parties of change and publishes the
// matching domain event. reassigned marks an assignment that replaced a
// provider who cancelled.
func (a *announcer) announce(
	ctx context.Context,
	bk *bookingDomain.Booking,
	change bookingDomain.Change,
	actor bookingDomain.Actor,
	notes string,
	reassigned bool,
) {
	payload := map[string]string{
		"booking_id":   bk.ID().String(),
		"service_id":   bk.ServiceID().String(),
		"status":       bk.Status().String(),
		"scheduled_at": bk.ScheduledAt().Format(time.RFC3339),
	}

	switch change.Effect {
	case bookingDomain.EffectAssigned:
		kind := notification.KindBookingAssigned
		if reassigned {
			kind = notification.KindBookingReassigned
		}
		a.notifyProvider(ctx, change.ProviderID, kind, payload)
	case bookingDomain.EffectAccepted:
		a.notifier.Notify(ctx, bk.CustomerID(), notification.KindBookingAccepted, payload)
	case bookingDomain.EffectCompleted:
		a.notifier.Notify(ctx, bk.CustomerID(), notification.KindBookingCompleted, payload)
	case bookingDomain.EffectProviderCancelled:
		a.notifier.Notify(ctx, bk.CustomerID(), notification.KindBookingDelayed, payload)
	case bookingDomain.EffectCancelled:
		a.notifyProvider(ctx, change.PreviousProviderID, notification.KindBookingCancelled, payload)
	case bookingDomain.EffectOverridden:
		if change.ProviderChanged() {
			a.notifyProvider(ctx, change.PreviousProviderID, notification.KindBookingCancelled, payload)
			if change.To == bookingDomain.StatusAssigned {
				a.notifyProvider(ctx, change.ProviderID, notification.KindBookingAssigned, payload)
			}
		}
	}

	eventType, ok := eventTypeByEffect[change.Effect]
	if !ok {
		return
	}
	evt := events.BookingStatusChangedEvent{
		BookingID:          bk.ID(),
		ServiceID:          bk.ServiceID(),
		CustomerID:         bk.CustomerID(),
		ProviderID:         change.ProviderID,
		PreviousProviderID: change.PreviousProviderID,
		FromStatus:         change.From.String(),
		ToStatus:           change.To.String(),
		ActorID:            actor.ID,
		ActorRole:          string(actor.Role),
		Notes:              notes,
		OccurredAt:         time.Now().UTC(),
	}
	a.publisher.Publish(ctx, eventType, bk.ID().String(), evt)
}

func (a *announcer) notifyProvider(ctx context.Context, providerID *uuid.UUID, kind notification.Kind, payload map[string]string) {
	if providerID == nil {
		return
	}
	a.notifier.Notify(ctx, *providerID, kind, payload)
}
