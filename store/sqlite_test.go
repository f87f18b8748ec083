package store

import (
	"context"
	"path/filepath"
	"testing"

	"go-metronome/metronome"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), DefaultDBFile))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteEmptyNotFound(t *testing.T) {
	db := openTestDB(t)
	presets, found, err := db.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if found || presets != nil {
		t.Errorf("Load on fresh db = %v, %v; want nil, false", presets, found)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	s := New(db)
	s.AddPreset("slow", 60, 40, 1, metronome.TimeSignature{Beats: 4, Unit: 4}, metronome.Pattern{true})
	s.AddPreset("seven", 180, 90, 7, metronome.TimeSignature{Beats: 7, Unit: 8},
		metronome.Pattern{true, false, true, false, true, true, false})
	if err := s.SavePresets(ctx); err != nil {
		t.Fatalf("SavePresets: %v", err)
	}

	fresh, err := Open(ctx, db)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	assertSamePresets(t, s, fresh)
}

func TestSQLiteSaveReplacesRows(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	s := New(db)
	s.SavePreset("a", metronome.DefaultSettings())
	s.SavePreset("b", metronome.DefaultSettings())
	if err := s.SavePresets(ctx); err != nil {
		t.Fatal(err)
	}

	s.RemovePreset("a")
	s.RemovePreset("b")
	if err := s.SavePresets(ctx); err != nil {
		t.Fatal(err)
	}

	// An empty save is still a saved document
	presets, found, err := db.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("found = false after an empty save")
	}
	if len(presets) != 0 {
		t.Errorf("rows after empty save = %d", len(presets))
	}
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DefaultDBFile)

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	s := New(db)
	s.SavePreset("kept", metronome.Settings{
		Tempo:         72,
		Volume:        10,
		Subdivision:   3,
		TimeSignature: metronome.TimeSignature{Beats: 6, Unit: 8},
		Pattern:       metronome.Pattern{true, false, false},
	})
	if err := s.SavePresets(ctx); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db2, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()

	fresh, err := Open(ctx, db2)
	if err != nil {
		t.Fatal(err)
	}
	assertSamePresets(t, s, fresh)
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()

	b, closeFn, err := OpenBackend(DriverJSON, filepath.Join(dir, DefaultPresetFile))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*JSONFile); !ok {
		t.Errorf("json driver gave %T", b)
	}
	closeFn()

	b, closeFn, err = OpenBackend(DriverSQLite, filepath.Join(dir, DefaultDBFile))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*SQLite); !ok {
		t.Errorf("sqlite driver gave %T", b)
	}
	if err := closeFn(); err != nil {
		t.Error(err)
	}

	if _, _, err := OpenBackend("postgres", ""); err == nil {
		t.Error("unknown driver accepted")
	}
}
