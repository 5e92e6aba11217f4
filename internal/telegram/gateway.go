package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/joinguard/pkg/model"
)

// Gateway performs the platform actions the admission controller issues.
type Gateway struct {
	client *Client
	logger *slog.Logger
}

// NewGateway wraps a Bot API client.
func NewGateway(client *Client, logger *slog.Logger) *Gateway {
	return &Gateway{
		client: client,
		logger: logger.With("component", "gateway"),
	}
}

// Mute revokes every send permission of the user.
func (g *Gateway) Mute(ctx context.Context, groupID, userID int64) error {
	return g.client.RestrictChatMember(ctx, groupID, userID, MutedPermissions(), time.Time{})
}

// RestoreFullPermissions lifts the restriction set by Mute.
func (g *Gateway) RestoreFullPermissions(ctx context.Context, groupID, userID int64) error {
	return g.client.RestrictChatMember(ctx, groupID, userID, FullPermissions(), time.Time{})
}

// RemoveTemporarily bans the user until the given time, after which Telegram
// lets them rejoin.
func (g *Gateway) RemoveTemporarily(ctx context.Context, groupID, userID int64, until time.Time) error {
	return g.client.BanChatMember(ctx, groupID, userID, until)
}

// SendChallenge posts the challenge text with one button per option and
// returns the message id.
func (g *Gateway) SendChallenge(ctx context.Context, groupID int64, text string, prompt model.Prompt) (int64, error) {
	keyboard := &InlineKeyboardMarkup{}
	for i, opt := range prompt.Options {
		data, err := EncodeCallback(prompt.UserID, prompt.ChallengeID, i)
		if err != nil {
			g.logger.Error("challenge keyboard not built", "group_id", groupID, "challenge_id", prompt.ChallengeID, "error", err)
			return 0, fmt.Errorf("build keyboard: %w", err)
		}
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, []InlineKeyboardButton{
			{Text: opt, CallbackData: data},
		})
	}

	msg, err := g.client.SendMessage(ctx, SendMessageParams{
		ChatID:      groupID,
		Text:        text,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// DeleteMessage deletes a message from the group.
func (g *Gateway) DeleteMessage(ctx context.Context, groupID, messageID int64) error {
	return g.client.DeleteMessage(ctx, groupID, messageID)
}

// Notify posts a plain text message to the group.
func (g *Gateway) Notify(ctx context.Context, groupID int64, text string) error {
	_, err := g.client.SendMessage(ctx, SendMessageParams{ChatID: groupID, Text: text})
	return err
}

// AcknowledgeAnswer stops the button's loading indicator. A non-empty text is
// shown as an alert to the presser only.
func (g *Gateway) AcknowledgeAnswer(ctx context.Context, callbackID, text string) error {
	if callbackID == "" {
		return nil
	}
	if err := g.client.AnswerCallbackQuery(ctx, callbackID, text, text != ""); err != nil {
		g.logger.Debug("callback not answered", "callback_id", callbackID, "error", err)
		return err
	}
	return nil
}
