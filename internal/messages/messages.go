// Package messages renders the user-facing texts of the bot in the
// configured language.
package messages

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	keyChallenge = "challenge"
	keyVerified  = "verified"
	keyRejected  = "rejected"
	keyExpired   = "expired"
	keyForeign   = "foreign"
)

var translations = map[language.Tag]map[string]string{
	language.Russian: {
		keyChallenge: "🕹️ %s, чтобы доказать, что ты не ботяра сильвер — нажми на %s.\nВыбери правильный предмет за %d сек., иначе улетишь в баню попариться!",
		keyVerified:  "✅ %s, верно! Капча пройдена. Welcome, боец 🔫",
		keyRejected:  "🚫 %s, мимо, бро. Зачилься на %d мин.",
		keyExpired:   "💥 %s не прошёл капчу и был отправлен на %d мин. в гачи-тренажёрку.",
		keyForeign:   "Братишка, я понимаю, что очень хочется, но не трогай чужую %s",
	},
	language.English: {
		keyChallenge: "🕹️ %s, to prove you are not a bot, press %s.\nYou have %d s to pick the right one or you will be removed for a while.",
		keyVerified:  "✅ %s, correct! Welcome aboard.",
		keyRejected:  "🚫 %s, wrong answer. Come back in %d min.",
		keyExpired:   "💥 %s did not solve the challenge in time and was removed for %d min.",
		keyForeign:   "This challenge is not for you. Hands off the %s!",
	},
}

// Supported lists the language tags with a full translation.
var Supported = []language.Tag{language.Russian, language.English}

// Catalog renders texts for one language. It is safe for concurrent use.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Catalog for lang (a BCP 47 tag such as "ru" or "en-GB"). The
// closest supported language is used; unparsable tags are an error.
func New(lang string) (*Catalog, error) {
	requested, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("messages: parse language %q: %w", lang, err)
	}

	b := catalog.NewBuilder(catalog.Fallback(language.Russian))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("messages: register %s/%s: %w", tag, key, err)
			}
		}
	}

	matcher := language.NewMatcher(Supported)
	_, idx, _ := matcher.Match(requested)
	tag := Supported[idx]

	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
	}, nil
}

// Language returns the language the catalog renders.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// Challenge is the text of the challenge message.
func (c *Catalog) Challenge(name, correct string, timeout time.Duration) string {
	return c.printer.Sprintf(keyChallenge, name, correct, int(timeout/time.Second))
}

// Verified announces a passed challenge.
func (c *Catalog) Verified(name string) string {
	return c.printer.Sprintf(keyVerified, name)
}

// Rejected announces a wrong answer and the removal period.
func (c *Catalog) Rejected(name string, ban time.Duration) string {
	return c.printer.Sprintf(keyRejected, name, minutes(ban))
}

// Expired announces an unanswered challenge and the removal period.
func (c *Catalog) Expired(name string, ban time.Duration) string {
	return c.printer.Sprintf(keyExpired, name, minutes(ban))
}

// NotYourChallenge is shown to someone pressing another user's challenge.
func (c *Catalog) NotYourChallenge(correct string) string {
	return c.printer.Sprintf(keyForeign, correct)
}

func minutes(d time.Duration) int {
	m := int(d.Round(time.Minute) / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}
