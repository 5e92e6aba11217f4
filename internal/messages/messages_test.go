package messages

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestNew_LanguageMatching(t *testing.T) {
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"ru", language.Russian},
		{"en", language.English},
		{"en-GB", language.English},
		{"de", language.Russian},
	}
	for _, tt := range tests {
		c, err := New(tt.in)
		if err != nil {
			t.Fatalf("New(%q): %v", tt.in, err)
		}
		if base, _ := c.Language().Base(); base != mustBase(tt.want) {
			t.Errorf("New(%q).Language() = %v, want %v", tt.in, c.Language(), tt.want)
		}
	}
}

func TestNew_InvalidTag(t *testing.T) {
	if _, err := New("not a tag!"); err == nil {
		t.Error("expected parse error")
	}
}

func TestCatalog_English(t *testing.T) {
	c, err := New("en")
	if err != nil {
		t.Fatal(err)
	}

	if got := c.Challenge("Ann", "🍆", time.Minute); !strings.Contains(got, "Ann") || !strings.Contains(got, "🍆") || !strings.Contains(got, "60 s") {
		t.Errorf("Challenge = %q", got)
	}
	if got := c.Verified("Ann"); !strings.Contains(got, "Ann") {
		t.Errorf("Verified = %q", got)
	}
	if got := c.Rejected("Ann", 30*time.Minute); !strings.Contains(got, "30 min") {
		t.Errorf("Rejected = %q", got)
	}
	if got := c.Expired("Ann", 90*time.Second); !strings.Contains(got, "2 min") {
		t.Errorf("Expired = %q", got)
	}
	if got := c.NotYourChallenge("🍆"); !strings.Contains(got, "🍆") {
		t.Errorf("NotYourChallenge = %q", got)
	}
}

func TestCatalog_Russian(t *testing.T) {
	c, err := New("ru")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Expired("Вася", 30*time.Minute); !strings.Contains(got, "Вася") || !strings.Contains(got, "30 мин.") {
		t.Errorf("Expired = %q", got)
	}
}

func TestMinutes(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 1},
		{10 * time.Second, 1},
		{30 * time.Minute, 30},
		{89 * time.Second, 1},
		{91 * time.Second, 2},
	}
	for _, tt := range tests {
		if got := minutes(tt.d); got != tt.want {
			t.Errorf("minutes(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func mustBase(t language.Tag) language.Base {
	b, _ := t.Base()
	return b
}
