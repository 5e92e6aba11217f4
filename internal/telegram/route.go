package telegram

import (
	"context"
	"log/slog"

	"github.com/me/joinguard/pkg/model"
)

// EventHandler consumes admission events decoded from updates.
type EventHandler interface {
	HandleMembership(ctx context.Context, ev model.MembershipChanged)
	HandleAnswer(ctx context.Context, ev model.ChallengeAnswered)
}

// Route decodes u and hands the resulting event to h. It reports whether the
// update carried an event for h; everything else is skipped.
func Route(ctx context.Context, u Update, h EventHandler, logger *slog.Logger) bool {
	switch {
	case u.ChatMember != nil:
		cm := u.ChatMember
		if !cm.Chat.IsGroup() {
			return false
		}
		h.HandleMembership(ctx, model.MembershipChanged{
			GroupID:        cm.Chat.ID,
			UserID:         cm.NewChatMember.User.ID,
			UserName:       cm.NewChatMember.User.DisplayName(),
			PreviousStatus: model.MemberStatus(cm.OldChatMember.Status),
			NewStatus:      model.MemberStatus(cm.NewChatMember.Status),
		})
		return true

	case u.CallbackQuery != nil:
		ev, ok := answerFromCallback(u.CallbackQuery)
		if !ok {
			logger.Debug("callback skipped", "update_id", u.UpdateID, "data", u.CallbackQuery.Data)
			return false
		}
		h.HandleAnswer(ctx, ev)
		return true
	}
	return false
}

// answerFromCallback resolves a button press into an answer. The selected
// token is read back from the pressed button's label.
func answerFromCallback(q *CallbackQuery) (model.ChallengeAnswered, bool) {
	if q.Message == nil || !q.Message.Chat.IsGroup() {
		return model.ChallengeAnswered{}, false
	}
	cb, err := DecodeCallback(q.Data)
	if err != nil {
		return model.ChallengeAnswered{}, false
	}
	token, ok := q.Message.ReplyMarkup.ButtonText(q.Data)
	if !ok {
		return model.ChallengeAnswered{}, false
	}
	return model.ChallengeAnswered{
		GroupID:          q.Message.Chat.ID,
		UserID:           cb.UserID,
		ChallengeID:      cb.ChallengeID,
		RespondingUserID: q.From.ID,
		SelectedToken:    token,
		CallbackID:       q.ID,
		MessageID:        q.Message.MessageID,
	}, true
}
