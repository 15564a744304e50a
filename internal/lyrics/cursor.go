// ABOUTME: Synced lyric cursor
// ABOUTME: Finds the active line for a playback position and its scroll fraction
package lyrics

import "sort"

// ActiveIndex returns the line active at positionMs, or -1 when there is
// none. Line i is active on [start(i), start(i+1)); the last line stays
// active forever.
func ActiveIndex(lines []Line, positionMs int64) int {
	// first line starting after the position
	next := sort.Search(len(lines), func(i int) bool {
		return lines[i].StartTimeMs > positionMs
	})
	return next - 1
}

// ScrollFraction maps a position onto [0, 1] for unsynced text. It is 0
// when the duration is unknown.
func ScrollFraction(positionMs, durationMs int64) float64 {
	if durationMs <= 0 {
		return 0
	}
	f := float64(positionMs) / float64(durationMs)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Lyrics is the lyric content for one track: synced lines, plain text,
// or nothing.
type Lyrics struct {
	TrackID      string
	Synced       []Line
	Plain        string
	Instrumental bool
}

// HasSynced reports whether timed lines are available
func (l Lyrics) HasSynced() bool {
	return len(l.Synced) > 0
}

// Selection is what the cursor highlights
type Selection struct {
	// Index is the active synced line, -1 for none
	Index int
	// Fraction is the scroll fraction for plain text
	Fraction float64
	Synced   bool
}

// Cursor selects the active part of a track's lyrics
type Cursor struct {
	lyrics Lyrics
}

// NewCursor creates a cursor over l
func NewCursor(l Lyrics) *Cursor {
	return &Cursor{lyrics: l}
}

// Lyrics returns the lyrics the cursor walks
func (c *Cursor) Lyrics() Lyrics {
	return c.lyrics
}

// At evaluates the cursor at a display position
func (c *Cursor) At(positionMs, durationMs int64) Selection {
	if c == nil {
		return Selection{Index: -1}
	}
	if c.lyrics.HasSynced() {
		return Selection{
			Index:    ActiveIndex(c.lyrics.Synced, positionMs),
			Fraction: ScrollFraction(positionMs, durationMs),
			Synced:   true,
		}
	}
	return Selection{
		Index:    -1,
		Fraction: ScrollFraction(positionMs, durationMs),
	}
}
