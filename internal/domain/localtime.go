package domain

import (
	"errors"
	"sort"
	"time"
)

var ErrNonexistentLocalTime = errors.New("local time does not exist in zone")

// Resolution is the outcome of mapping a zone-less wall clock reading onto
// an instant. Ambiguous is set when the wall clock occurs twice (clock
// fallback); Instant is then the earliest of the candidates.
type Resolution struct {
	Instant   time.Time
	Ambiguous bool
}

// ResolveLocal maps a naive wall clock reading (its fields are read as-is,
// its own location is ignored) onto an instant in loc. Ambiguous readings
// resolve to the earliest candidate. Readings inside a spring-forward gap
// fail with ErrNonexistentLocalTime.
func ResolveLocal(naive time.Time, loc *time.Location) (time.Time, error) {
	res, err := ResolveLocalDetailed(naive, loc)
	if err != nil {
		return time.Time{}, err
	}
	return res.Instant, nil
}

func ResolveLocalDetailed(naive time.Time, loc *time.Location) (Resolution, error) {
	if loc == nil {
		loc = time.Local
	}

	y, mo, d := naive.Date()
	h, mi, s := naive.Clock()
	ns := naive.Nanosecond()
	wall := time.Date(y, mo, d, h, mi, s, ns, time.UTC)

	// Offsets in effect a day either side cover every transition that can
	// touch this wall clock reading.
	offsets := make(map[int]struct{}, 3)
	for _, probe := range []time.Time{wall.Add(-24 * time.Hour), wall, wall.Add(24 * time.Hour)} {
		_, off := probe.In(loc).Zone()
		offsets[off] = struct{}{}
	}

	var candidates []time.Time
	for off := range offsets {
		instant := wall.Add(-time.Duration(off) * time.Second)
		if sameWallClock(instant.In(loc), y, mo, d, h, mi, s, ns) {
			candidates = append(candidates, instant)
		}
	}

	if len(candidates) == 0 {
		return Resolution{}, ErrNonexistentLocalTime
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Before(candidates[j])
	})

	return Resolution{
		Instant:   candidates[0].In(loc),
		Ambiguous: len(candidates) > 1,
	}, nil
}

func sameWallClock(t time.Time, y int, mo time.Month, d, h, mi, s, ns int) bool {
	ty, tmo, td := t.Date()
	th, tmi, ts := t.Clock()
	return ty == y && tmo == mo && td == d && th == h && tmi == mi && ts == s && t.Nanosecond() == ns
}
