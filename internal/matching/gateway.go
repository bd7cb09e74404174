package matching

import "context"

// MatchSummary is the payload handed to the notification gateway for one
// newly introduced match.
type MatchSummary struct {
	Axis        Axis           `json:"axis"`
	PeerName    string         `json:"peer_name"`
	Score       int            `json:"score"`
	DistanceKm  float64        `json:"distance_km"`
	SharedSlots SharedSlotList `json:"shared_slots,omitempty"`
}

// DigestEntry is one line of a weekly "week ahead" summary or a day-before
// reminder.
type DigestEntry struct {
	PeerName    string         `json:"peer_name"`
	Score       int            `json:"score"`
	SharedSlots SharedSlotList `json:"shared_slots"`
}

// NotificationGateway is the outbound delivery boundary. Implementations must
// be safe to fail independently: a failed send never rolls back the match
// persistence that triggered it.
type NotificationGateway interface {
	// NotifyNewMatch delivers a "new match" email. The boolean reports
	// whether the email actually went out.
	NotifyNewMatch(ctx context.Context, ownerID, peerID int64, summary MatchSummary) bool

	// PushNotify is best-effort, fire-and-forget.
	PushNotify(ctx context.Context, ownerID int64, payload map[string]interface{})

	// SendWeeklyDigest delivers the aggregated week-ahead summary.
	SendWeeklyDigest(ctx context.Context, ownerID int64, entries []DigestEntry) bool

	// SendDayBeforeReminder delivers tomorrow's playdate reminder.
	SendDayBeforeReminder(ctx context.Context, ownerID int64, entries []DigestEntry) bool
}
