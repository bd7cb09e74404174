// internal/notification/push.go

package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// PushService sends push notifications to device tokens.
type PushService interface {
	SendPush(ctx context.Context, msg *PushMessage) error
}

// FCMPushService implements push notifications using Firebase Cloud Messaging
type FCMPushService struct {
	client *messaging.Client
}

// NewFCMPushService creates a new FCM push service from a credentials file
// or raw credentials JSON.
func NewFCMPushService(ctx context.Context, credentialsPath, credentialsJSON string) (PushService, error) {
	var opt option.ClientOption
	switch {
	case credentialsPath != "":
		opt = option.WithCredentialsFile(credentialsPath)
	case credentialsJSON != "":
		opt = option.WithCredentialsJSON([]byte(credentialsJSON))
	default:
		return nil, errors.New("firebase credentials path or JSON must be provided")
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMPushService{client: client}, nil
}

func (s *FCMPushService) SendPush(ctx context.Context, msg *PushMessage) error {
	if len(msg.Tokens) == 0 {
		return errors.New("no tokens provided")
	}

	notification := &messaging.Notification{
		Title: msg.Title,
		Body:  msg.Body,
	}

	data := msg.Data
	if data == nil {
		data = make(map[string]string)
	}

	messages := make([]*messaging.Message, 0, len(msg.Tokens))
	for _, token := range msg.Tokens {
		messages = append(messages, &messaging.Message{
			Token:        token,
			Notification: notification,
			Data:         data,
		})
	}

	if len(messages) == 1 {
		response, err := s.client.Send(ctx, messages[0])
		if err != nil {
			log.Printf("Failed to send push notification: %v", err)
			return err
		}
		log.Printf("Successfully sent push notification: %s", response)
		return nil
	}

	batchResponse, err := s.client.SendAll(ctx, messages)
	if err != nil {
		log.Printf("Failed to send batch push notifications: %v", err)
		return err
	}

	if batchResponse.FailureCount > 0 {
		log.Printf("Failed to send %d out of %d push notifications",
			batchResponse.FailureCount, len(messages))
		for idx, resp := range batchResponse.Responses {
			if resp.Error != nil {
				log.Printf("Failed to send to token %s: %v", msg.Tokens[idx], resp.Error)
			}
		}
	}

	return nil
}

// MockPushService is a mock implementation for testing and development
type MockPushService struct {
	SentNotifications []*PushMessage
}

func NewMockPushService() *MockPushService {
	return &MockPushService{
		SentNotifications: make([]*PushMessage, 0),
	}
}

func (m *MockPushService) SendPush(ctx context.Context, msg *PushMessage) error {
	m.SentNotifications = append(m.SentNotifications, msg)
	log.Printf("Mock: Sending push notification to %d devices: %s", len(msg.Tokens), msg.Title)
	return nil
}
