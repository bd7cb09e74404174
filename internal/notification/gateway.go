// internal/notification/gateway.go
// Outbound delivery for the matching pipeline: email, push and websocket.

package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/playdatehub/playdate-backend/internal/matching"
	"github.com/playdatehub/playdate-backend/internal/profile"
)

// Gateway implements matching.NotificationGateway. Every method is safe to
// fail: delivery problems are logged and reported through the return value,
// never propagated as errors.
type Gateway struct {
	profiles profile.Repository
	email    EmailService
	push     PushService
	tokens   TokenRepository
	hub      *Hub

	emailEnabled bool
	pushEnabled  bool
}

func NewGateway(
	profiles profile.Repository,
	email EmailService,
	push PushService,
	tokens TokenRepository,
	hub *Hub,
	emailEnabled, pushEnabled bool,
) *Gateway {
	return &Gateway{
		profiles:     profiles,
		email:        email,
		push:         push,
		tokens:       tokens,
		hub:          hub,
		emailEnabled: emailEnabled,
		pushEnabled:  pushEnabled,
	}
}

var _ matching.NotificationGateway = (*Gateway)(nil)

func (g *Gateway) NotifyNewMatch(ctx context.Context, ownerID, peerID int64, summary matching.MatchSummary) bool {
	if g.hub != nil {
		g.hub.NotifyMatchEvent(ownerID, "new_match", summary)
	}

	if !g.emailEnabled {
		return false
	}

	owner, err := g.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		log.Printf("notification: profile lookup failed for user %d: %v", ownerID, err)
		return false
	}

	msg, err := NewMatchEmail(owner.Email, summary)
	if err != nil {
		log.Printf("notification: match email render failed for user %d: %v", ownerID, err)
		return false
	}

	if err := g.email.SendEmail(ctx, msg); err != nil {
		log.Printf("notification: match email to user %d failed: %v", ownerID, err)
		return false
	}
	return true
}

func (g *Gateway) PushNotify(ctx context.Context, ownerID int64, payload map[string]interface{}) {
	if !g.pushEnabled {
		return
	}

	tokens, err := g.tokens.GetTokens(ctx, ownerID)
	if err != nil {
		log.Printf("notification: token lookup failed for user %d: %v", ownerID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	data := make(map[string]string, len(payload))
	for k, v := range payload {
		data[k] = fmt.Sprintf("%v", v)
	}

	title := "PlaydateHub"
	body := "You have a new playdate match!"
	if name, ok := payload["peer_name"].(string); ok && name != "" {
		body = fmt.Sprintf("%s could be a great playdate match!", name)
	}

	msg := &PushMessage{
		Tokens: tokens,
		Title:  title,
		Body:   body,
		Data:   data,
	}

	if err := g.push.SendPush(ctx, msg); err != nil {
		log.Printf("notification: push to user %d failed: %v", ownerID, err)
	}
}

func (g *Gateway) SendWeeklyDigest(ctx context.Context, ownerID int64, entries []matching.DigestEntry) bool {
	if !g.emailEnabled {
		return false
	}

	owner, err := g.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		log.Printf("notification: profile lookup failed for user %d: %v", ownerID, err)
		return false
	}

	msg, err := WeeklyDigestEmail(owner.Email, entries)
	if err != nil {
		log.Printf("notification: digest render failed for user %d: %v", ownerID, err)
		return false
	}

	if err := g.email.SendEmail(ctx, msg); err != nil {
		log.Printf("notification: digest email to user %d failed: %v", ownerID, err)
		return false
	}
	return true
}

func (g *Gateway) SendDayBeforeReminder(ctx context.Context, ownerID int64, entries []matching.DigestEntry) bool {
	if g.hub != nil {
		g.hub.NotifyMatchEvent(ownerID, "playdate_reminder", entries)
	}

	if !g.emailEnabled {
		return false
	}

	owner, err := g.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		log.Printf("notification: profile lookup failed for user %d: %v", ownerID, err)
		return false
	}

	msg, err := DayBeforeReminderEmail(owner.Email, entries)
	if err != nil {
		log.Printf("notification: reminder render failed for user %d: %v", ownerID, err)
		return false
	}

	if err := g.email.SendEmail(ctx, msg); err != nil {
		log.Printf("notification: reminder email to user %d failed: %v", ownerID, err)
		return false
	}
	return true
}
