package ledger

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"savekeep/internal/sk"
)

const (
	header      = "# savekeep ledger v2"
	fieldSep    = "|"
	recordArity = 8
)

// encodeSnapshots renders the current record format:
//
//	id|storageFolder|createdAt|characterName|profileId|userLabel|createdAtDisplay|isQuicksave
//
// createdAt is RFC 3339 with nanoseconds; the display copy is for humans
// reading the file and is only parsed when the first one is unusable.
func encodeSnapshots(w io.Writer, snapshots []*sk.Snapshot) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, header)
	for _, s := range snapshots {
		fields := []string{
			clean(s.ID),
			clean(s.StorageFolderName),
			s.CreatedAt.Format(time.RFC3339Nano),
			clean(s.CharacterName),
			clean(s.ProfileID),
			clean(s.UserLabel),
			s.CreatedAt.Format(sk.DisplayTimeFormat),
			strconv.FormatBool(s.IsQuicksave),
		}
		fmt.Fprintln(bw, strings.Join(fields, fieldSep))
	}
	return bw.Flush()
}

// decodeSnapshots parses records, skipping blank, comment, short and
// unparseable lines.
func decodeSnapshots(r io.Reader) ([]*sk.Snapshot, int, error) {
	var out []*sk.Snapshot
	skipped := 0
	err := eachLine(r, func(line string) {
		s, ok := decodeSnapshot(line)
		if !ok {
			skipped++
			return
		}
		out = append(out, s)
	})
	return out, skipped, err
}

func decodeSnapshot(line string) (*sk.Snapshot, bool) {
	f := strings.Split(line, fieldSep)
	if len(f) < recordArity {
		return nil, false
	}
	if f[0] == "" || f[1] == "" {
		return nil, false
	}

	createdAt, err := time.Parse(time.RFC3339Nano, f[2])
	if err != nil {
		createdAt, err = time.ParseInLocation(sk.DisplayTimeFormat, f[6], time.Local)
		if err != nil {
			return nil, false
		}
	}
	quick, err := strconv.ParseBool(strings.TrimSpace(f[7]))
	if err != nil {
		return nil, false
	}

	return &sk.Snapshot{
		ID:                f[0],
		StorageFolderName: f[1],
		CreatedAt:         createdAt,
		CharacterName:     f[3],
		ProfileID:         f[4],
		UserLabel:         f[5],
		IsQuicksave:       quick,
	}, true
}

// encodeNames writes profileId|characterName lines.
func encodeNames(w io.Writer, names *sk.NameTable) error {
	bw := bufio.NewWriter(w)
	for _, id := range names.SortedIDs() {
		fmt.Fprintf(bw, "%s%s%s\n", clean(id), fieldSep, clean(names.Get(id)))
	}
	return bw.Flush()
}

func decodeNames(r io.Reader, names *sk.NameTable) error {
	return eachLine(r, func(line string) {
		f := strings.Split(line, fieldSep)
		if len(f) < 2 || f[0] == "" {
			return
		}
		names.Set(f[0], strings.TrimSpace(f[1]))
	})
}

func encodeScanned(w io.Writer, names *sk.NameTable) error {
	bw := bufio.NewWriter(w)
	for _, id := range names.SortedScanned() {
		fmt.Fprintln(bw, clean(id))
	}
	return bw.Flush()
}

func decodeScanned(r io.Reader, names *sk.NameTable) error {
	return eachLine(r, func(line string) {
		names.MarkScanned(strings.TrimSpace(line))
	})
}

// legacyRecord is one line of the old folder-keyed ledger:
// folderName|characterName|userLabel.
type legacyRecord struct {
	CharacterName string
	UserLabel     string
}

func decodeLegacy(r io.Reader) (map[string]legacyRecord, error) {
	out := make(map[string]legacyRecord)
	err := eachLine(r, func(line string) {
		f := strings.Split(line, fieldSep)
		if len(f) < 3 || f[0] == "" {
			return
		}
		out[f[0]] = legacyRecord{CharacterName: f[1], UserLabel: f[2]}
	})
	return out, err
}

func eachLine(r io.Reader, fn func(line string)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fn(line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading ledger lines: %w", err)
	}
	return nil
}

// clean keeps the delimiter and control whitespace out of a field.
func clean(s string) string {
	return strings.NewReplacer(fieldSep, " ", "\n", " ", "\r", " ", "\t", " ", "\f", " ", "\v", " ").Replace(s)
}
