// Package notify delivers push notifications through Firebase Cloud Messaging.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/messaging"
)

var ErrNoTarget = errors.New("notification has no token or topic")

// Notification is a push message for one device token, several tokens, or a
// topic. Token wins over Tokens, which win over Topic. Data values are
// strings because FCM data payloads only carry strings.
type Notification struct {
	Token  string
	Tokens []string
	Topic  string
	Title  string
	Body   string
	Data   map[string]string
}

// Sender sends a notification and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, n Notification) (string, error)
}

type messagingAPI interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FCMSender struct {
	client messagingAPI
}

// NewFCMSender wraps a messaging client obtained from firebase App.Messaging.
func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{client: client}
}

// Send delivers n and returns the provider message id. For a Tokens send the
// id of the first successful delivery is returned; it fails only when no
// token was reached.
func (s *FCMSender) Send(ctx context.Context, n Notification) (string, error) {
	if strings.TrimSpace(n.Token) == "" {
		if tokens := cleanTokens(n.Tokens); len(tokens) > 0 {
			return s.sendMulticast(ctx, tokens, n)
		}
	}
	msg, err := buildMessage(n)
	if err != nil {
		return "", err
	}
	id, err := s.client.Send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("fcm send: %w", err)
	}
	return id, nil
}

func (s *FCMSender) sendMulticast(ctx context.Context, tokens []string, n Notification) (string, error) {
	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
		Data:         n.Data,
		Android:      androidConfig(),
	})
	if err != nil {
		return "", fmt.Errorf("fcm multicast: %w", err)
	}
	var firstErr error
	for _, r := range resp.Responses {
		if r == nil {
			continue
		}
		if r.Success {
			return r.MessageID, nil
		}
		if firstErr == nil {
			firstErr = r.Error
		}
	}
	if firstErr == nil {
		firstErr = errors.New("no delivery succeeded")
	}
	return "", fmt.Errorf("fcm multicast: %d of %d failed: %w", resp.FailureCount, len(tokens), firstErr)
}

func cleanTokens(tokens []string) []string {
	clean := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	return clean
}

func buildMessage(n Notification) (*messaging.Message, error) {
	token := strings.TrimSpace(n.Token)
	topic := strings.TrimSpace(n.Topic)
	if token == "" && topic == "" {
		return nil, ErrNoTarget
	}
	msg := &messaging.Message{
		Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
		Data:         n.Data,
		Android:      androidConfig(),
	}
	if token != "" {
		msg.Token = token
	} else {
		msg.Topic = topic
	}
	return msg, nil
}

func androidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{Priority: "high"}
}
