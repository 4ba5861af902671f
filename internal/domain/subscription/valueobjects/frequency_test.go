package valueobjects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency("alternate")
	require.NoError(t, err)
	assert.Equal(t, FrequencyAlternate, f)

	_, err = ParseFrequency("fortnightly")
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}

func TestFrequency_GapAndCycle(t *testing.T) {
	tests := []struct {
		freq  Frequency
		gap   int
		cycle int
	}{
		{FrequencyDaily, 1, 30},
		{FrequencyAlternate, 2, 15},
		{FrequencyWeekly, 7, 5},
		{FrequencyMonthly, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.freq.String(), func(t *testing.T) {
			assert.Equal(t, tt.gap, tt.freq.GapDays())
			assert.Equal(t, tt.cycle, tt.freq.DeliveriesPerCycle())
		})
	}
}

func TestFrequency_Next(t *testing.T) {
	d := NewDeliveryDate(2024, time.January, 31)
	assert.Equal(t, NewDeliveryDate(2024, time.February, 1), FrequencyDaily.Next(d))
	assert.Equal(t, NewDeliveryDate(2024, time.February, 7), FrequencyWeekly.Next(d))
	assert.Equal(t, NewDeliveryDate(2024, time.March, 2), FrequencyMonthly.Next(d))
}

func TestFrequency_DeliveriesInWindow(t *testing.T) {
	from := NewDeliveryDate(2024, time.January, 16)
	to := NewDeliveryDate(2024, time.January, 31)

	assert.Equal(t, 16, FrequencyDaily.DeliveriesInWindow(from, to))
	assert.Equal(t, 3, FrequencyWeekly.DeliveriesInWindow(from, to))
	assert.Equal(t, 0, FrequencyDaily.DeliveriesInWindow(to, from))

	// A wide window is still capped at one cycle.
	wide := NewDeliveryDate(2024, time.June, 1)
	assert.Equal(t, 30, FrequencyDaily.DeliveriesInWindow(from, wide))
}

func TestSlot_CutoffAndNominalHours(t *testing.T) {
	assert.Equal(t, 4, SlotMorning.CutoffHour())
	assert.Equal(t, 16, SlotEvening.CutoffHour())
	assert.Equal(t, 6, SlotMorning.NominalHour())
	assert.Equal(t, 18, SlotEvening.NominalHour())

	_, err := ParseSlot("afternoon")
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestDeliveryStatus_Transitions(t *testing.T) {
	assert.True(t, DeliveryScheduled.CanTransitionTo(DeliveryReaching))
	assert.True(t, DeliveryReaching.CanTransitionTo(DeliveryAwaitingCustomer))
	assert.True(t, DeliveryAwaitingCustomer.CanTransitionTo(DeliveryDelivered))
	assert.False(t, DeliveryDelivered.CanTransitionTo(DeliveryScheduled))
	assert.False(t, DeliveryScheduled.CanTransitionTo(DeliveryDelivered))

	assert.True(t, DeliveryNoResponse.CountsAsDelivered())
	assert.True(t, DeliveryDelivered.IsTerminal())
	assert.False(t, DeliveryAwaitingCustomer.IsTerminal())
}
