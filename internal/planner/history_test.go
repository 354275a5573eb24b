package planner

import (
	"strings"
	"testing"
)

func TestUndoRedoRoundTrip(t *testing.T) {
	s := seedStore("Anna")
	h := NewHistory()
	before := mustJSON(t, s.Data())

	if err := h.Record(s); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.SetStatus(0, 2025, 2, 10, StatusTraining); err != nil {
		t.Fatal(err)
	}
	after := mustJSON(t, s.Data())

	if ok, err := h.Undo(s); err != nil || !ok {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if got := mustJSON(t, s.Data()); got != before {
		t.Errorf("Undo did not restore the previous state:\n got %s\nwant %s", got, before)
	}
	if ok, err := h.Redo(s); err != nil || !ok {
		t.Fatalf("Redo = %v, %v", ok, err)
	}
	if got := mustJSON(t, s.Data()); got != after {
		t.Errorf("Redo did not re-apply the edit:\n got %s\nwant %s", got, after)
	}
}

func TestNewEditClearsRedo(t *testing.T) {
	s := seedStore("Anna")
	h := NewHistory()
	for day := 1; day <= 3; day++ {
		if err := h.Record(s); err != nil {
			t.Fatal(err)
		}
		if err := s.SetStatus(0, 2025, 0, day, StatusSick); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := h.Undo(s); err != nil {
		t.Fatal(err)
	}
	if !h.CanRedo() {
		t.Fatal("Expected a redo entry after undo")
	}
	if err := h.Record(s); err != nil {
		t.Fatal(err)
	}
	if h.CanRedo() {
		t.Error("recording a new edit must discard the redo branch")
	}
	if ok, err := h.Redo(s); err != nil || ok {
		t.Errorf("Redo after new edit = %v, %v; want false, nil", ok, err)
	}
}

func TestUndoOnEmptyHistory(t *testing.T) {
	s := seedStore("Anna")
	h := NewHistory()
	if ok, err := h.Undo(s); err != nil || ok {
		t.Errorf("Undo on empty history = %v, %v", ok, err)
	}
	if ok, err := h.Redo(s); err != nil || ok {
		t.Errorf("Redo on empty history = %v, %v", ok, err)
	}
	if undo, redo := h.Depth(); undo != 0 || redo != 0 {
		t.Errorf("Depth() = %d, %d", undo, redo)
	}
}

func TestSnapshotsSurviveLargeRosters(t *testing.T) {
	names := make([]string, 200)
	for i := range names {
		names[i] = "Mitarbeiter " + strings.Repeat("x", i%7)
	}
	s := seedStore(names...)
	for m := range names {
		if err := s.SetStatus(m, 2025, m%12, 1+m%28, StatusVacation); err != nil {
			t.Fatal(err)
		}
	}
	want := mustJSON(t, s.Data())

	snap, err := takeSnapshot(s.Data())
	if err != nil {
		t.Fatalf("takeSnapshot failed: %v", err)
	}
	if snap.raw {
		t.Error("a repetitive roster should compress")
	}
	d, err := snap.restore()
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if got := mustJSON(t, d); got != want {
		t.Error("restored snapshot differs from the original")
	}
}

func TestIncompressibleSnapshotFallsBackToRaw(t *testing.T) {
	d := NewData()
	d.Members = []Member{{Name: "Z"}}
	snap, err := takeSnapshot(d)
	if err != nil {
		t.Fatalf("takeSnapshot failed: %v", err)
	}
	if !snap.raw {
		t.Skip("tiny payload compressed; nothing to check")
	}
	restored, err := snap.restore()
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.Members[0].Name != "Z" {
		t.Errorf("Expected member Z, got %v", restored.Members)
	}
}
