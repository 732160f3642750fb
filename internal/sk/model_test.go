package sk

import (
	"errors"
	"testing"
	"time"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Before Boss", "Before Boss", false},
		{"  Act 2 ", "Act 2", false},
		{"12345678901234567890", "12345678901234567890", false},
		{"123456789012345678901", "", true},
		{"", "", true},
		{"   ", "", true},
		{"Tav's Save", "", true},
		{"Café", "", true},
		{"a\nb", "", true},
		{"a\tb", "", true},
		{"Before\r\nBoss", "", true},
		{"a\fb", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateName(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Errorf("ValidateName(%q) error = %v, want ErrInvalidName", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateName(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ValidateName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFolderNames(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 2, 0, time.Local)
	if got, want := BackupFolderName("P__HonourMode", at), "P__HonourMode_2024-03-09_07-05-02"; got != want {
		t.Errorf("BackupFolderName() = %q, want %q", got, want)
	}

	qs := QuicksaveFolderName("P__HonourMode")
	if qs != "P__HonourMode_quicksave" {
		t.Errorf("QuicksaveFolderName() = %q", qs)
	}
	if !IsQuicksaveFolder(qs) || !IsQuicksaveFolder("P_QUICKSAVE") {
		t.Error("IsQuicksaveFolder() = false for quicksave folders")
	}
	if IsQuicksaveFolder("P__HonourMode_2024-03-09_07-05-02") {
		t.Error("IsQuicksaveFolder() = true for a regular folder")
	}
}

func TestLayout(t *testing.T) {
	snap := &Snapshot{StorageFolderName: "F", ProfileID: "P"}

	l := Layout{BackupRoot: "/backups", FlagPath: "/config/profile8.lsx"}
	if got := l.SnapshotProfileDir(snap); got != "/backups/F/P" {
		t.Errorf("SnapshotProfileDir() = %q", got)
	}
	if got := l.SnapshotFlagPath(snap); got != "/backups/F/profile8.lsx" {
		t.Errorf("SnapshotFlagPath() = %q", got)
	}

	l.FlagPath = ""
	if got := l.SnapshotFlagPath(snap); got != "" {
		t.Errorf("SnapshotFlagPath() = %q, want empty without a flag file", got)
	}
}

func TestLedgerState(t *testing.T) {
	state := &LedgerState{
		Names: NewNameTable(),
		Snapshots: []*Snapshot{
			{ID: "a", StorageFolderName: "fa", ProfileID: "P", CharacterName: "Tav", UserLabel: "One"},
			{ID: "q", StorageFolderName: "fq", ProfileID: "P", CharacterName: "Tav", UserLabel: QuicksaveLabel, IsQuicksave: true},
			{ID: "b", StorageFolderName: "fb", ProfileID: "Q", CharacterName: "Tav", UserLabel: "Two"},
		},
	}

	if got := state.FindByLabel("tav", "two"); got == nil || got.ID != "b" {
		t.Errorf("FindByLabel() = %+v, want b", got)
	}
	if got := state.FindByLabel("Tav", QuicksaveLabel); got != nil {
		t.Errorf("FindByLabel() = %+v, quicksaves must not match", got)
	}
	if got := state.FindQuicksave("P"); got == nil || got.ID != "q" {
		t.Errorf("FindQuicksave() = %+v, want q", got)
	}
	if state.FindQuicksave("Q") != nil {
		t.Error("FindQuicksave() found a quicksave for Q")
	}
	if !state.HasFolder("fb") || state.HasFolder("fz") {
		t.Error("HasFolder() wrong")
	}
	if !state.Remove("a") || state.Remove("a") {
		t.Error("Remove() should succeed once")
	}
	if len(state.Snapshots) != 2 {
		t.Errorf("len(Snapshots) = %d, want 2", len(state.Snapshots))
	}
}

func TestNameTable(t *testing.T) {
	names := NewNameTable()
	names.Set("B", "Tav")
	names.Set("A", "Karlach")
	names.Set("C", "Gale")
	names.Set("C", "")
	names.MarkScanned("Z")

	if got := names.SortedIDs(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("SortedIDs() = %v, want [A B]", got)
	}
	if names.Get("C") != "" {
		t.Error("Set with empty name should remove the entry")
	}
	if !names.WasScanned("Z") || names.WasScanned("A") {
		t.Error("WasScanned() wrong")
	}
}

func TestState_String(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	snap := &Snapshot{UserLabel: "Before Boss"}

	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"current", State{Kind: StateCurrent, LiveModified: at}, "Current Save (2024-01-15 10:30:00)"},
		{"restored", State{Kind: StateRestored, Snapshot: snap, RestoredAt: at}, "Restored Before Boss (2024-01-15 10:30:00)"},
		{"heuristic", State{Kind: StateRestored, Snapshot: snap, Heuristic: true}, "Matches Before Boss"},
		{"degraded", State{Kind: StateRestored, RestoredAt: at}, "Restored at 2024-01-15 10:30:00 (backup no longer exists)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
