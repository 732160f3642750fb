package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"savekeep/internal/app"
	"savekeep/internal/sk"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestPrintSnapshots(t *testing.T) {
	snaps := []*sk.Snapshot{
		{ID: "a1", CharacterName: "Tav", UserLabel: "Before Boss", CreatedAt: time.Date(2024, 1, 15, 9, 0, 0, 0, time.Local)},
		{ID: "b2", UserLabel: sk.MigratedLabel},
	}

	t.Run("without sizes", func(t *testing.T) {
		var buf bytes.Buffer
		printSnapshots(&buf, snaps, nil)
		out := buf.String()

		if strings.Contains(out, "SIZE") {
			t.Errorf("unexpected SIZE column:\n%s", out)
		}
		for _, want := range []string{"Before Boss", "2024-01-15 09:00:00", "b2"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("with sizes", func(t *testing.T) {
		var buf bytes.Buffer
		printSnapshots(&buf, snaps, func(id string) (int64, error) {
			if id == "b2" {
				return 0, sk.ErrSnapshotNotFound
			}
			return 2048, nil
		})
		out := buf.String()

		if !strings.Contains(out, "2.0 kB") {
			t.Errorf("output missing size:\n%s", out)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 3 || !strings.HasSuffix(lines[2], "?") {
			t.Errorf("unreadable size should print ?:\n%s", out)
		}
	})
}

func TestPrintStatus(t *testing.T) {
	snap := &sk.Snapshot{ID: "a1", CharacterName: "Tav", UserLabel: "Before Boss"}
	statuses := []*app.ProfileStatus{
		{
			Profile: &sk.Profile{ID: "Alpha__HonourMode", CharacterName: "Tav"},
			State:   sk.State{Kind: sk.StateRestored, Snapshot: snap, SnapshotID: snap.ID},
			Backups: 1,
		},
		{
			Profile: &sk.Profile{ID: "Beta__HonourMode"},
			State:   sk.State{Kind: sk.StateCurrent},
		},
	}

	var buf bytes.Buffer
	printStatus(&buf, statuses)
	out := buf.String()

	for _, want := range []string{"Tav Alpha__HonourMode", "Restored", "1 backup(s), quicksave: none", "Beta__HonourMode", "Current Save"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintMarks(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 0, 0, 0, time.Local)
	marks := []*sk.MarkedRestore{
		{
			Mark:     &sk.RestorationMark{ProfileID: "Alpha__HonourMode", RestoredSnapshotID: "a1", RestoredAt: at},
			Snapshot: &sk.Snapshot{ID: "a1", UserLabel: "Before Boss"},
		},
		{
			Mark: &sk.RestorationMark{ProfileID: "Beta__HonourMode", RestoredSnapshotID: "b2", RestoredAt: at},
		},
	}

	var buf bytes.Buffer
	printMarks(&buf, marks)
	out := buf.String()

	for _, want := range []string{"Before Boss", "b2 (deleted)", "2024-01-15 09:00:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(time.Time{}); got != "-" {
		t.Errorf("formatTime(zero) = %q, want -", got)
	}
}
