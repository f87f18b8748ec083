package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-metronome/metronome"
)

func TestPatternLibraryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPatternFile)

	s := New(nil)
	s.AddPattern("offbeat", metronome.Pattern{false, true})
	s.AddPattern("shuffle", metronome.Pattern{true, false, true})
	if err := s.SavePatterns(path); err != nil {
		t.Fatalf("SavePatterns: %v", err)
	}

	fresh := New(nil)
	if err := fresh.LoadPatterns(path); err != nil {
		t.Fatalf("LoadPatterns: %v", err)
	}
	if got := strings.Join(fresh.PatternNames(), ","); got != "offbeat,shuffle" {
		t.Fatalf("PatternNames() = %s", got)
	}
	p, _ := fresh.Pattern("shuffle")
	if !p.Equal(metronome.Pattern{true, false, true}) {
		t.Errorf("shuffle = %v", p)
	}
}

func TestLoadPatternsHandWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPatternFile)
	doc := `patterns:
  gallop: [true, false, true, true]
  quarter:
    - true
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(nil)
	s.AddPattern("gallop", metronome.Pattern{false})
	if err := s.LoadPatterns(path); err != nil {
		t.Fatal(err)
	}
	gallop, _ := s.Pattern("gallop")
	if gallop.String() != "x.xx" {
		t.Errorf("gallop = %s, want x.xx", gallop)
	}
	if _, ok := s.Pattern("quarter"); !ok {
		t.Error("quarter missing")
	}
}

func TestLoadPatternsMissingFile(t *testing.T) {
	s := New(nil)
	if err := s.LoadPatterns(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Errorf("missing library: %v", err)
	}
}

func TestLoadPatternsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPatternFile)
	if err := os.WriteFile(path, []byte("patterns: [not, a, map"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(nil)
	err := s.LoadPatterns(path)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("LoadPatterns = %v, want ErrMalformed", err)
	}
}
