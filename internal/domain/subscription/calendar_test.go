package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

func TestGenerateCalendar_DailyCycle(t *testing.T) {
	today := date(t, "2024-01-01")
	entries, err := GenerateCalendar(date(t, "2024-01-02"), vo.DeliveryDate{}, vo.FrequencyDaily, vo.SlotMorning, today)
	require.NoError(t, err)
	require.Len(t, entries, 30)

	assert.Equal(t, date(t, "2024-01-02"), entries[0].Date)
	assert.Equal(t, date(t, "2024-01-31"), entries[29].Date)

	// Morning cutoff is 04:00 business time; Asia/Kolkata is UTC+5:30.
	wantCutoff := time.Date(2024, 1, 1, 22, 30, 0, 0, time.UTC)
	assert.True(t, entries[0].CutoffAt.Equal(wantCutoff), "got %s", entries[0].CutoffAt)
}

func TestGenerateCalendar_StartTodayShiftsToTomorrow(t *testing.T) {
	today := date(t, "2024-01-01")
	entries, err := GenerateCalendar(today, vo.DeliveryDate{}, vo.FrequencyDaily, vo.SlotMorning, today)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, date(t, "2024-01-02"), entries[0].Date)
}

func TestGenerateCalendar_StartInPast(t *testing.T) {
	today := date(t, "2024-01-10")
	entries, err := GenerateCalendar(date(t, "2024-01-02"), vo.DeliveryDate{}, vo.FrequencyWeekly, vo.SlotEvening, today)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, date(t, "2024-01-11"), entries[0].Date)
	assert.Equal(t, date(t, "2024-01-18"), entries[1].Date)
}

func TestGenerateCalendar_WeeklyCap(t *testing.T) {
	today := date(t, "2024-01-01")
	entries, err := GenerateCalendar(date(t, "2024-01-02"), vo.DeliveryDate{}, vo.FrequencyWeekly, vo.SlotMorning, today)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, date(t, "2024-01-02"), entries[0].Date)
	assert.Equal(t, date(t, "2024-01-30"), entries[4].Date)
}

func TestGenerateCalendar_AlternateDays(t *testing.T) {
	today := date(t, "2024-01-01")
	entries, err := GenerateCalendar(date(t, "2024-01-02"), vo.DeliveryDate{}, vo.FrequencyAlternate, vo.SlotMorning, today)
	require.NoError(t, err)
	require.Len(t, entries, 15)
	assert.Equal(t, date(t, "2024-01-04"), entries[1].Date)
	assert.Equal(t, date(t, "2024-01-30"), entries[14].Date)
}

func TestGenerateCalendar_MonthlyAdvancesByCalendarMonth(t *testing.T) {
	today := date(t, "2024-01-01")
	entries, err := GenerateCalendar(date(t, "2024-01-31"), vo.DeliveryDate{}, vo.FrequencyMonthly, vo.SlotMorning, today)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, date(t, "2024-01-31"), entries[0].Date)
}

func TestGenerateCalendar_BoundedWindow(t *testing.T) {
	today := date(t, "2024-01-15")
	entries, err := GenerateCalendar(date(t, "2024-01-16"), date(t, "2024-01-31"), vo.FrequencyWeekly, vo.SlotMorning, today)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, date(t, "2024-01-16"), entries[0].Date)
	assert.Equal(t, date(t, "2024-01-30"), entries[2].Date)
}

func TestGenerateCalendar_EmptyWindow(t *testing.T) {
	today := date(t, "2024-01-30")
	entries, err := GenerateCalendar(date(t, "2024-01-02"), date(t, "2024-01-30"), vo.FrequencyDaily, vo.SlotMorning, today)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateCalendar_InvalidFrequency(t *testing.T) {
	today := date(t, "2024-01-01")
	_, err := GenerateCalendar(date(t, "2024-01-02"), vo.DeliveryDate{}, vo.Frequency("fortnightly"), vo.SlotMorning, today)
	assert.ErrorIs(t, err, vo.ErrInvalidFrequency)
}
