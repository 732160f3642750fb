package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"savekeep/internal/app"
	"savekeep/internal/sk"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func printProfiles(w io.Writer, profiles []*sk.Profile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHARACTER\tPROFILE\tLAST SAVED")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.DisplayName(), p.ID, formatTime(p.LastModified))
	}
	tw.Flush()
}

// printSnapshots renders snapshots as a table. sizeOf is nil when sizes are
// not wanted.
func printSnapshots(w io.Writer, snaps []*sk.Snapshot, sizeOf func(id string) (int64, error)) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "ID\tCHARACTER\tLABEL\tCREATED"
	if sizeOf != nil {
		header += "\tSIZE"
	}
	fmt.Fprintln(tw, header)

	for _, s := range snaps {
		character := s.CharacterName
		if character == "" {
			character = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s", s.ID, character, s.DisplayLabel(), formatTime(s.CreatedAt))
		if sizeOf != nil {
			size := "?"
			if n, err := sizeOf(s.ID); err == nil {
				size = humanize.Bytes(uint64(n))
			}
			fmt.Fprintf(tw, "\t%s", size)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func printStatus(w io.Writer, statuses []*app.ProfileStatus) {
	for _, st := range statuses {
		state := st.State.String()
		switch {
		case st.State.Kind == sk.StateCurrent:
			state = yellow(state)
		case st.State.Snapshot == nil:
			state = red(state)
		default:
			state = green(state)
		}

		quick := "none"
		if st.Quicksave != nil {
			quick = humanize.Time(st.Quicksave.CreatedAt)
		}
		fmt.Fprintf(w, "%s %s\n", cyan(st.Profile.DisplayName()), gray(st.Profile.ID))
		fmt.Fprintf(w, "  %s\n", state)
		fmt.Fprintf(w, "  %d backup(s), quicksave: %s\n", st.Backups, quick)
	}
}

func printMarks(w io.Writer, marks []*sk.MarkedRestore) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tSNAPSHOT\tRESTORED")
	for _, m := range marks {
		snapshot := m.Mark.RestoredSnapshotID + " (deleted)"
		if m.Snapshot != nil {
			snapshot = m.Snapshot.DisplayLabel()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Mark.ProfileID, snapshot, formatTime(m.Mark.RestoredAt))
	}
	tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(sk.DisplayTimeFormat)
}
