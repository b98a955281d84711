package segment

import (
	"fmt"
	"regexp"
	"strconv"
)

// fileNameRe matches segment file names: two non-negative integers
// separated by a dot, with a .txt suffix. The numeric portion is the
// creation timestamp.
var fileNameRe = regexp.MustCompile(`^(\d+)\.(\d+)\.txt$`)

// Timestamp orders segments by creation time. Frac disambiguates
// flushes that land on the same wall-clock second.
type Timestamp struct {
	Sec  int64
	Frac int64
}

// ParseTimestamp extracts the timestamp encoded in a segment file
// name. A name without the numeric-dot-numeric suffix yields the zero
// timestamp.
func ParseTimestamp(name string) Timestamp {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return Timestamp{}
	}
	sec, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Timestamp{}
	}
	frac, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return Timestamp{}
	}
	return Timestamp{Sec: sec, Frac: frac}
}

// IsSegmentFileName reports whether name looks like a segment file.
func IsSegmentFileName(name string) bool {
	return fileNameRe.MatchString(name)
}

// FileName renders the timestamp as a segment file name. Frac is
// zero-padded to nanosecond width so that lexicographic file order
// agrees with numeric timestamp order.
func FileName(ts Timestamp) string {
	return fmt.Sprintf("%d.%09d.txt", ts.Sec, ts.Frac)
}

func (t Timestamp) IsZero() bool {
	return t.Sec == 0 && t.Frac == 0
}

// Compare returns -1, 0 or 1 ordering t against o.
func (t Timestamp) Compare(o Timestamp) int {
	switch {
	case t.Sec < o.Sec:
		return -1
	case t.Sec > o.Sec:
		return 1
	case t.Frac < o.Frac:
		return -1
	case t.Frac > o.Frac:
		return 1
	}
	return 0
}

func (t Timestamp) Less(o Timestamp) bool {
	return t.Compare(o) < 0
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%d", t.Sec, t.Frac)
}
