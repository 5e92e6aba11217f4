package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

// callbackPrefix marks button payloads produced by this bot.
const callbackPrefix = "cg"

// maxCallbackData is the Bot API limit on callback_data, in bytes.
const maxCallbackData = 64

// CallbackData is the decoded payload of a challenge button.
type CallbackData struct {
	UserID      int64
	ChallengeID string
	Option      int
}

// EncodeCallback builds the payload "cg:<user>:<challenge>:<option>".
func EncodeCallback(userID int64, challengeID string, option int) (string, error) {
	if strings.Contains(challengeID, ":") {
		return "", fmt.Errorf("telegram: challenge id %q contains ':'", challengeID)
	}
	data := fmt.Sprintf("%s:%d:%s:%d", callbackPrefix, userID, challengeID, option)
	if len(data) > maxCallbackData {
		return "", fmt.Errorf("telegram: callback data is %d bytes, limit %d", len(data), maxCallbackData)
	}
	return data, nil
}

// DecodeCallback parses a payload produced by EncodeCallback.
func DecodeCallback(data string) (CallbackData, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 || parts[0] != callbackPrefix {
		return CallbackData{}, fmt.Errorf("telegram: foreign callback data %q", data)
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return CallbackData{}, fmt.Errorf("telegram: callback user id: %w", err)
	}
	if parts[2] == "" {
		return CallbackData{}, fmt.Errorf("telegram: callback without challenge id")
	}
	option, err := strconv.Atoi(parts[3])
	if err != nil || option < 0 {
		return CallbackData{}, fmt.Errorf("telegram: callback option %q is invalid", parts[3])
	}
	return CallbackData{UserID: userID, ChallengeID: parts[2], Option: option}, nil
}
