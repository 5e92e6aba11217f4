package challenge

import (
	"strings"
	"sync"
	"testing"
)

var testAlphabet = []string{"🥩", "🍆", "💦", "🧼"}

func TestNewGenerator_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"too small", Config{Alphabet: []string{"a", "b", "c"}, Correct: "a"}, "at least 4"},
		{"duplicate", Config{Alphabet: []string{"a", "b", "c", "a"}, Correct: "a"}, "duplicate"},
		{"empty token", Config{Alphabet: []string{"a", "b", "", "d"}, Correct: "a"}, "empty token"},
		{"correct missing", Config{Alphabet: []string{"a", "b", "c", "d"}, Correct: "z"}, "not in the alphabet"},
		{"size too big", Config{Alphabet: testAlphabet, Correct: "🍆", Size: 5}, "out of range"},
		{"size too small", Config{Alphabet: testAlphabet, Correct: "🍆", Size: 1}, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestGenerate_ContainsCorrect(t *testing.T) {
	for _, size := range []int{0, 2, 3, 4} {
		g, err := NewGenerator(Config{Alphabet: testAlphabet, Correct: "🍆", Size: size})
		if err != nil {
			t.Fatalf("NewGenerator(size=%d): %v", size, err)
		}
		want := size
		if want == 0 {
			want = len(testAlphabet)
		}
		for i := 0; i < 200; i++ {
			ch := g.Generate()
			if len(ch.Options) != want {
				t.Fatalf("size=%d: got %d options", size, len(ch.Options))
			}
			if !ch.Contains("🍆") {
				t.Fatalf("size=%d: correct token missing from %v", size, ch.Options)
			}
			if ch.Correct != "🍆" {
				t.Fatalf("Correct = %q", ch.Correct)
			}
			seen := map[string]bool{}
			for _, o := range ch.Options {
				if seen[o] {
					t.Fatalf("duplicate option %q in %v", o, ch.Options)
				}
				seen[o] = true
			}
		}
	}
}

func TestGenerate_ShufflesPresentation(t *testing.T) {
	g, err := NewGenerator(Config{Alphabet: testAlphabet, Correct: "🍆"})
	if err != nil {
		t.Fatal(err)
	}
	positions := map[int]bool{}
	for i := 0; i < 500; i++ {
		ch := g.Generate()
		for p, o := range ch.Options {
			if o == "🍆" {
				positions[p] = true
			}
		}
	}
	if len(positions) < 2 {
		t.Errorf("correct token always at the same position: %v", positions)
	}
}

func TestGenerate_UniqueIDs(t *testing.T) {
	g, err := NewGenerator(Config{Alphabet: testAlphabet, Correct: "🍆"})
	if err != nil {
		t.Fatal(err)
	}

	const workers, each = 8, 250
	var mu sync.Mutex
	ids := make(map[string]bool, workers*each)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				id := g.Generate().ID
				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(ids) != workers*each {
		t.Errorf("got %d unique ids, want %d", len(ids), workers*each)
	}
	for id := range ids {
		if len(id) != 32 {
			t.Fatalf("id %q has length %d, want 32", id, len(id))
		}
		break
	}
}
