package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localserve/service-booking/internal/common/domain"
)

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	bk, err := NewBooking(uuid.New(), uuid.New(), time.Now().Add(24*time.Hour), 12500, "", "please bring a ladder")
	require.NoError(t, err)
	return bk
}

func TestNewBooking_Validation(t *testing.T) {
	_, err := NewBooking(uuid.Nil, uuid.New(), time.Now(), 100, "USD", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewBooking(uuid.New(), uuid.New(), time.Time{}, 100, "USD", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	bk := newTestBooking(t)
	assert.Equal(t, StatusPending, bk.Status())
	assert.Nil(t, bk.ProviderID())
	assert.Equal(t, domain.CurrencyUSD, bk.Currency())
	assert.Equal(t, int64(1), bk.Version())
	assert.NoError(t, bk.CheckInvariants())
}

func TestBooking_ApplyFullLifecycle(t *testing.T) {
	bk := newTestBooking(t)
	provider := uuid.New()
	asProvider := Actor{ID: provider, Role: ActorProvider}
	now := time.Now()

	_, err := bk.Apply(Command{Action: ActionAutoAssign, Actor: Actor{Role: ActorSystem}, ProviderID: provider}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, bk.Status())
	require.NotNil(t, bk.AssignedAt())

	_, err = bk.Apply(Command{Action: ActionAccept, Actor: asProvider, Notes: "on my way"}, now)
	require.NoError(t, err)
	assert.Equal(t, "on my way", bk.ProviderNotes())

	_, err = bk.Apply(Command{Action: ActionComplete, Actor: asProvider, Notes: "done"}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, bk.Status())
	require.NotNil(t, bk.CompletedAt())
	assert.Equal(t, "done", bk.ProviderNotes())
	assert.Equal(t, int64(4), bk.Version())
	assert.NoError(t, bk.CheckInvariants())
}

func TestBooking_ApplyRejectedLeavesBookingUntouched(t *testing.T) {
	bk := newTestBooking(t)
	before := *bk

	_, err := bk.Apply(Command{Action: ActionAccept, Actor: Actor{ID: uuid.New(), Role: ActorProvider}}, time.Now())
	require.Error(t, err)
	assert.Equal(t, before, *bk)
}

func TestBooking_ProviderCancelReturnsToPool(t *testing.T) {
	bk := newTestBooking(t)
	provider := uuid.New()
	_, err := bk.Apply(Command{Action: ActionAutoAssign, Actor: Actor{Role: ActorSystem}, ProviderID: provider}, time.Now())
	require.NoError(t, err)

	change, err := bk.Apply(Command{Action: ActionCancel, Actor: Actor{ID: provider, Role: ActorProvider}, Notes: "unavailable"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, EffectProviderCancelled, change.Effect)
	assert.Equal(t, StatusUnassigned, bk.Status())
	assert.Nil(t, bk.ProviderID())
	assert.Nil(t, bk.AssignedAt())
	assert.Equal(t, "unavailable", bk.ProviderNotes())
	assert.NoError(t, bk.CheckInvariants())
}

func TestBooking_CustomerCancelIsTerminal(t *testing.T) {
	bk := newTestBooking(t)
	_, err := bk.Apply(Command{Action: ActionCancel, Actor: Actor{ID: bk.CustomerID(), Role: ActorCustomer}, Notes: "changed plans"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, bk.Status())
	assert.Equal(t, "changed plans", bk.CancelNote())
	require.NotNil(t, bk.CancelledAt())

	_, err = bk.Apply(Command{Action: ActionAdminAssign, Actor: Actor{Role: ActorAdmin}, ProviderID: uuid.New()}, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestParseBookingStatus(t *testing.T) {
	s, err := ParseBookingStatus("unassigned")
	require.NoError(t, err)
	assert.True(t, s.IsOpen())
	assert.False(t, s.IsTerminal())

	_, err = ParseBookingStatus("requested")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
