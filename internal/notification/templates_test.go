package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdatehub/playdate-backend/internal/matching"
)

func TestFormatSlot(t *testing.T) {
	assert.Equal(t, "Wednesday morning",
		FormatSlot(matching.SharedSlot{DayOfWeek: 3, TimeBand: matching.BandMorning}))
	assert.Equal(t, "Sunday all day",
		FormatSlot(matching.SharedSlot{DayOfWeek: 0, TimeBand: matching.BandAllDay}))
}

func TestNewMatchEmail(t *testing.T) {
	msg, err := NewMatchEmail("anna@example.com", matching.MatchSummary{
		Axis:       matching.AxisSchedule,
		PeerName:   "Bram & co <script>",
		Score:      72,
		DistanceKm: 4.2,
		SharedSlots: matching.SharedSlotList{
			{DayOfWeek: 3, TimeBand: matching.BandMorning},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "anna@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Bram & co")
	assert.Contains(t, msg.HTML, "Wednesday morning")
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.Body, "72")
}

func TestWeeklyDigestEmail(t *testing.T) {
	msg, err := WeeklyDigestEmail("anna@example.com", []matching.DigestEntry{
		{PeerName: "Bram", Score: 80, SharedSlots: matching.SharedSlotList{{DayOfWeek: 5, TimeBand: matching.BandAfternoon}}},
		{PeerName: "Cleo", Score: 65, SharedSlots: matching.SharedSlotList{{DayOfWeek: 6, TimeBand: matching.BandEvening}}},
	})
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, "Bram")
	assert.Contains(t, msg.HTML, "Friday afternoon")
	assert.Contains(t, msg.HTML, "Saturday evening")
	assert.Contains(t, msg.Body, "2")
}

func TestMockEmailServiceRecords(t *testing.T) {
	mock := NewMockEmailService()
	err := mock.SendEmail(context.Background(), &EmailMessage{To: "x@example.com", Subject: "hi"})
	require.NoError(t, err)
	require.Len(t, mock.SentEmails, 1)
	assert.Equal(t, "hi", mock.SentEmails[0].Subject)
}
