package sk_test

import (
	"testing"
	"time"

	skfs "savekeep/internal/fs"
	"savekeep/internal/sk"
	"savekeep/internal/testutil"
)

func TestTracker_DescribeState(t *testing.T) {
	restoredAt := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	snap := &sk.Snapshot{ID: "id-1", StorageFolderName: "f", ProfileID: "P", CharacterName: "Tav", UserLabel: "Before Boss"}
	mark := &sk.RestorationMark{ProfileID: "P", RestoredSnapshotID: "id-1", RestoredAt: restoredAt}

	scanner := skfs.NewOSSaveScanner(testutil.ModeSuffix, testutil.PayloadExt)
	matcher := sk.NewMatcher(sk.Layout{BackupRoot: t.TempDir()}, scanner, sk.NewNopLogger())
	tracker := sk.NewTracker(matcher, testutil.NewTestDatabase(t))

	tests := []struct {
		name         string
		liveModified time.Time
		snapshots    []*sk.Snapshot
		wantKind     sk.StateKind
		wantSnapshot bool
	}{
		{"modified before restore", restoredAt.Add(-time.Hour), []*sk.Snapshot{snap}, sk.StateRestored, true},
		{"modified within grace", restoredAt.Add(30 * time.Second), []*sk.Snapshot{snap}, sk.StateRestored, true},
		{"modified exactly at grace", restoredAt.Add(sk.RestoreGrace), []*sk.Snapshot{snap}, sk.StateRestored, true},
		{"modified after grace", restoredAt.Add(sk.RestoreGrace + time.Second), []*sk.Snapshot{snap}, sk.StateCurrent, false},
		{"restored snapshot deleted", restoredAt, nil, sk.StateRestored, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &sk.Profile{ID: "P", CharacterName: "Tav", LastModified: tt.liveModified}

			got := tracker.DescribeState(profile, mark, tt.snapshots)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if (got.Snapshot != nil) != tt.wantSnapshot {
				t.Errorf("Snapshot = %+v, want present=%v", got.Snapshot, tt.wantSnapshot)
			}
			if got.Heuristic {
				t.Error("Heuristic = true for a mark-derived state")
			}
		})
	}

	t.Run("deleted snapshot renders degraded", func(t *testing.T) {
		profile := &sk.Profile{ID: "P", LastModified: restoredAt}
		got := tracker.DescribeState(profile, mark, nil)
		want := "Restored at " + restoredAt.Format(sk.DisplayTimeFormat) + " (backup no longer exists)"
		if got.String() != want {
			t.Errorf("String() = %q, want %q", got.String(), want)
		}
	})
}

func TestTracker_Record(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	scanner := skfs.NewOSSaveScanner(testutil.ModeSuffix, testutil.PayloadExt)
	tracker := sk.NewTracker(sk.NewMatcher(sk.Layout{BackupRoot: t.TempDir()}, scanner, sk.NewNopLogger()), db)
	t0 := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	if err := tracker.Record("P", "id-1", t0); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := tracker.Record("P", "id-2", t0.Add(time.Hour)); err != nil {
		t.Fatalf("second Record() error = %v", err)
	}

	mark, err := tracker.Mark("P")
	if err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if mark == nil || mark.RestoredSnapshotID != "id-2" {
		t.Errorf("Mark() = %+v, want superseded by id-2", mark)
	}
	if other, err := tracker.Mark("Q"); err != nil || other != nil {
		t.Errorf("Mark(Q) = %+v, %v; want nil, nil", other, err)
	}
}

func TestBackupService_Describe(t *testing.T) {
	t.Run("restore then play", func(t *testing.T) {
		env := newTestEnv(t)
		alpha := env.addProfile(t, "Alpha", "Tav", "v1")
		snap := env.backup(t, env.profile(t, alpha), "Before Boss")
		env.tree.WriteSave(t, alpha, "Save", "v2 longer", saveTime.Add(time.Minute))

		if _, err := env.svc.Restore(env.profile(t, alpha), snap.ID, true, nil); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}

		state, err := env.svc.Describe(env.profile(t, alpha))
		if err != nil {
			t.Fatalf("Describe() error = %v", err)
		}
		if state.Kind != sk.StateRestored || state.Snapshot == nil || state.Snapshot.ID != snap.ID || state.Heuristic {
			t.Fatalf("Describe() = %+v, want restored %s from mark", state, snap.ID)
		}

		// The game writes a new save two minutes after the restore.
		env.tree.WriteSave(t, alpha, "Save", "v3", env.clock.Now().Add(2*time.Minute))
		state, err = env.svc.Describe(env.profile(t, alpha))
		if err != nil {
			t.Fatalf("Describe() error = %v", err)
		}
		if state.Kind != sk.StateCurrent {
			t.Errorf("Describe() = %+v, want current", state)
		}
	})

	t.Run("restored snapshot later deleted", func(t *testing.T) {
		env := newTestEnv(t)
		alpha := env.addProfile(t, "Alpha", "Tav", "v1")
		snap := env.backup(t, env.profile(t, alpha), "Before Boss")
		if _, err := env.svc.Restore(env.profile(t, alpha), snap.ID, true, nil); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if err := env.svc.DeleteSnapshot(snap.ID); err != nil {
			t.Fatalf("DeleteSnapshot() error = %v", err)
		}

		state, err := env.svc.Describe(env.profile(t, alpha))
		if err != nil {
			t.Fatalf("Describe() error = %v", err)
		}
		if state.Kind != sk.StateRestored || state.Snapshot != nil || state.SnapshotID != snap.ID {
			t.Errorf("Describe() = %+v, want degraded restored state", state)
		}
	})

	t.Run("heuristic match without a mark", func(t *testing.T) {
		env := newTestEnv(t)
		alpha := env.addProfile(t, "Alpha", "Tav", "v1")
		snap := env.backup(t, env.profile(t, alpha), "Before Boss")

		state, err := env.svc.Describe(env.profile(t, alpha))
		if err != nil {
			t.Fatalf("Describe() error = %v", err)
		}
		if state.Kind != sk.StateRestored || !state.Heuristic || state.Snapshot == nil || state.Snapshot.ID != snap.ID {
			t.Fatalf("Describe() = %+v, want heuristic match on %s", state, snap.ID)
		}
		if want := "Matches Before Boss"; state.String() != want {
			t.Errorf("String() = %q, want %q", state.String(), want)
		}

		mark, err := env.db.FindRestorationMark(alpha)
		if err != nil {
			t.Fatalf("FindRestorationMark() error = %v", err)
		}
		if mark != nil {
			t.Errorf("heuristic match persisted a mark: %+v", mark)
		}
	})
}

func TestMatcher_FindMatchingSnapshot(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		offset    time.Duration
		wantMatch bool
	}{
		{"identical", "v1", 0, true},
		{"within tolerance", "v1", sk.MatchTolerance, true},
		{"outside tolerance", "v1", sk.MatchTolerance + time.Second, false},
		{"one byte larger", "v1x", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			alpha := env.addProfile(t, "Alpha", "Tav", "v1")
			snap := env.backup(t, env.profile(t, alpha), "Stored")
			env.tree.WriteSave(t, alpha, "Save", tt.content, saveTime.Add(tt.offset))

			scanner := skfs.NewOSSaveScanner(testutil.ModeSuffix, testutil.PayloadExt)
			matcher := sk.NewMatcher(sk.Layout{BackupRoot: env.tree.BackupRoot}, scanner, sk.NewNopLogger())
			all, err := env.svc.AllSnapshots()
			if err != nil {
				t.Fatalf("AllSnapshots() error = %v", err)
			}

			got := matcher.FindMatchingSnapshot(env.profile(t, alpha), all)
			if tt.wantMatch && (got == nil || got.ID != snap.ID) {
				t.Errorf("FindMatchingSnapshot() = %+v, want %s", got, snap.ID)
			}
			if !tt.wantMatch && got != nil {
				t.Errorf("FindMatchingSnapshot() = %+v, want nil", got)
			}
		})
	}

	t.Run("first match in ledger order wins", func(t *testing.T) {
		env := newTestEnv(t)
		alpha := env.addProfile(t, "Alpha", "Tav", "v1")
		p := env.profile(t, alpha)
		first := env.backup(t, p, "First")
		second := env.backup(t, p, "Second")

		scanner := skfs.NewOSSaveScanner(testutil.ModeSuffix, testutil.PayloadExt)
		matcher := sk.NewMatcher(sk.Layout{BackupRoot: env.tree.BackupRoot}, scanner, sk.NewNopLogger())

		if got := matcher.FindMatchingSnapshot(p, []*sk.Snapshot{first, second}); got == nil || got.ID != first.ID {
			t.Errorf("FindMatchingSnapshot(first, second) = %+v, want %s", got, first.ID)
		}
		if got := matcher.FindMatchingSnapshot(p, []*sk.Snapshot{second, first}); got == nil || got.ID != second.ID {
			t.Errorf("FindMatchingSnapshot(second, first) = %+v, want %s", got, second.ID)
		}
	})

	t.Run("quicksaves and other characters never match", func(t *testing.T) {
		env := newTestEnv(t)
		alpha := env.addProfile(t, "Alpha", "Tav", "v1")
		p := env.profile(t, alpha)
		if _, err := env.svc.QuickSave(p); err != nil {
			t.Fatalf("QuickSave() error = %v", err)
		}
		snap := env.backup(t, p, "Stored")
		if err := env.svc.RenameProfile(p, "Karlach"); err != nil {
			t.Fatalf("RenameProfile() error = %v", err)
		}

		all, err := env.svc.AllSnapshots()
		if err != nil {
			t.Fatalf("AllSnapshots() error = %v", err)
		}
		scanner := skfs.NewOSSaveScanner(testutil.ModeSuffix, testutil.PayloadExt)
		matcher := sk.NewMatcher(sk.Layout{BackupRoot: env.tree.BackupRoot}, scanner, sk.NewNopLogger())

		other := &sk.Profile{ID: p.ID, MostRecentSaveFile: p.MostRecentSaveFile, CharacterName: "Shadowheart"}
		if got := matcher.FindMatchingSnapshot(other, all); got != nil {
			t.Errorf("FindMatchingSnapshot() = %+v, want nil for another character", got)
		}
		if got := matcher.FindMatchingSnapshot(env.profile(t, alpha), all); got == nil || got.ID != snap.ID {
			t.Errorf("FindMatchingSnapshot() = %+v, want regular backup %s", got, snap.ID)
		}
	})
}
