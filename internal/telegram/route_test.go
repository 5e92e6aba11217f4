package telegram

import (
	"context"
	"testing"

	"github.com/me/joinguard/pkg/model"
)

type recordingHandler struct {
	memberships []model.MembershipChanged
	answers     []model.ChallengeAnswered
}

func (h *recordingHandler) HandleMembership(_ context.Context, ev model.MembershipChanged) {
	h.memberships = append(h.memberships, ev)
}

func (h *recordingHandler) HandleAnswer(_ context.Context, ev model.ChallengeAnswered) {
	h.answers = append(h.answers, ev)
}

var testGroup = Chat{ID: -100, Type: "supergroup"}

func TestRoute_Membership(t *testing.T) {
	h := &recordingHandler{}
	u := Update{UpdateID: 1, ChatMember: &ChatMemberUpdated{
		Chat:          testGroup,
		OldChatMember: ChatMember{Status: "left", User: User{ID: 42, FirstName: "Ann"}},
		NewChatMember: ChatMember{Status: "member", User: User{ID: 42, FirstName: "Ann"}},
	}}
	if !Route(context.Background(), u, h, testLogger()) {
		t.Fatal("Route returned false")
	}
	if len(h.memberships) != 1 {
		t.Fatalf("memberships = %d, want 1", len(h.memberships))
	}
	ev := h.memberships[0]
	if ev.GroupID != -100 || ev.UserID != 42 || ev.UserName != "Ann" || !ev.IsJoin() {
		t.Errorf("event = %+v", ev)
	}
}

func TestRoute_PrivateChatIgnored(t *testing.T) {
	h := &recordingHandler{}
	u := Update{ChatMember: &ChatMemberUpdated{
		Chat:          Chat{ID: 5, Type: "private"},
		OldChatMember: ChatMember{Status: "left"},
		NewChatMember: ChatMember{Status: "member"},
	}}
	if Route(context.Background(), u, h, testLogger()) {
		t.Error("private chat update was routed")
	}
}

func challengeMessage(t *testing.T) *Message {
	t.Helper()
	kb := &InlineKeyboardMarkup{}
	for i, opt := range []string{"🍎", "🍌"} {
		data, err := EncodeCallback(42, "cid", i)
		if err != nil {
			t.Fatal(err)
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, []InlineKeyboardButton{{Text: opt, CallbackData: data}})
	}
	return &Message{MessageID: 9, Chat: testGroup, ReplyMarkup: kb}
}

func TestRoute_Answer(t *testing.T) {
	h := &recordingHandler{}
	msg := challengeMessage(t)
	u := Update{CallbackQuery: &CallbackQuery{
		ID:      "q1",
		From:    User{ID: 7},
		Message: msg,
		Data:    msg.ReplyMarkup.InlineKeyboard[1][0].CallbackData,
	}}
	if !Route(context.Background(), u, h, testLogger()) {
		t.Fatal("Route returned false")
	}
	if len(h.answers) != 1 {
		t.Fatalf("answers = %d, want 1", len(h.answers))
	}
	want := model.ChallengeAnswered{
		GroupID:          -100,
		UserID:           42,
		ChallengeID:      "cid",
		RespondingUserID: 7,
		SelectedToken:    "🍌",
		CallbackID:       "q1",
		MessageID:        9,
	}
	if h.answers[0] != want {
		t.Errorf("answer = %+v, want %+v", h.answers[0], want)
	}
}

func TestRoute_AnswerIgnored(t *testing.T) {
	msg := challengeMessage(t)
	tests := []struct {
		name string
		q    *CallbackQuery
	}{
		{"foreign data", &CallbackQuery{ID: "q", Message: msg, Data: "other"}},
		{"no message", &CallbackQuery{ID: "q", Data: msg.ReplyMarkup.InlineKeyboard[0][0].CallbackData}},
		{"button not on message", &CallbackQuery{ID: "q", Message: msg, Data: "cg:42:cid:5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			if Route(context.Background(), Update{CallbackQuery: tt.q}, h, testLogger()) {
				t.Error("Route returned true")
			}
			if len(h.answers) != 0 {
				t.Errorf("answers = %d, want 0", len(h.answers))
			}
		})
	}
}
