package lark

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/application/port"
)

// MessageCreator is the part of the IM API the messenger uses
type MessageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Messenger implements port.MessageSender with Lark text messages
type Messenger struct {
	messages MessageCreator
	logger   *zap.Logger
}

// NewMessenger creates a messenger on top of an SDK client
func NewMessenger(client *lark.Client, logger *zap.Logger) *Messenger {
	return NewMessengerWithCreator(client.Im.Message, logger)
}

// NewMessengerWithCreator creates a messenger on an arbitrary message API
func NewMessengerWithCreator(messages MessageCreator, logger *zap.Logger) *Messenger {
	return &Messenger{
		messages: messages,
		logger:   logger,
	}
}

type textContent struct {
	Text string `json:"text"`
}

// newTextMessage builds the body of a text message addressed by open_id
func newTextMessage(openID, text string) (*larkim.CreateMessageReqBody, error) {
	content, err := json.Marshal(textContent{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message content: %w", err)
	}
	return larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(openID).
		MsgType("text").
		Content(string(content)).
		Build(), nil
}

// SendText sends a plain text message to a user identified by open_id
func (m *Messenger) SendText(ctx context.Context, openID string, text string) error {
	if openID == "" {
		return fmt.Errorf("openID cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	body, err := newTextMessage(openID, text)
	if err != nil {
		return err
	}
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("open_id").
		Body(body).
		Build()

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message", zap.String("open_id", openID), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("open_id", openID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Info("Message sent", zap.String("message_id", messageID), zap.String("open_id", openID))
	return nil
}

var _ port.MessageSender = (*Messenger)(nil)
