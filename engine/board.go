package engine

import "fmt"

// Board geometry. The ring has exactly 52 cells visited in one fixed
// direction; the four colors share it, each owning one start cell spaced 13
// cells apart and one star cell 8 cells after its own start. One cell before
// its own start, each color peels off into a private 6-cell lane whose last
// cell (lane index 5) is the finish.
//
// All derivations below are computed once from the fixed ring at package
// init and cross-checked by selfCheck; the ring is never re-derived with a
// different rotation afterwards.
const (
	RingSize     = 52
	LaneSize     = 6
	starDistance = 8
)

// colorStart maps each color to its absolute ring start cell.
var colorStart = map[Color]int{
	ColorRed:    0,
	ColorBlue:   13,
	ColorGreen:  26,
	ColorYellow: 39,
}

// safeCells holds every absolute index on which tokens cannot be captured:
// the four start cells plus the four star cells. Populated at init.
var safeCells [RingSize]bool

func init() {
	for _, start := range colorStart {
		safeCells[start] = true
		safeCells[(start+starDistance)%RingSize] = true
	}
	if err := selfCheck(); err != nil {
		// Geometry defects are development-time faults and block release.
		panic(err)
	}
}

// StartOffset returns the absolute ring index of the color's start cell.
func StartOffset(c Color) int {
	return colorStart[c]
}

// ToAbsolute maps a color-relative ring position (0..51) to an absolute ring
// index. It is defined only for ring positions; callers must not invoke it
// for lane or finished tokens.
func ToAbsolute(rel int, c Color) int {
	return (rel + colorStart[c]) % RingSize
}

// ToRelative is the inverse of ToAbsolute for the same color.
func ToRelative(abs int, c Color) int {
	return (abs - colorStart[c] + RingSize) % RingSize
}

// IsSafeCell reports whether the absolute ring index is a start or star
// cell. Safety is a ring-only concept; lane and home are unconditionally
// safe by token state.
func IsSafeCell(abs int) bool {
	if abs < 0 || abs >= RingSize {
		return false
	}
	return safeCells[abs]
}

// LaneEntryCell returns the absolute index of the cell from which the color
// peels off the ring, one cell before its own start.
func LaneEntryCell(c Color) int {
	return (colorStart[c] - 1 + RingSize) % RingSize
}

// CellHint is an opaque 2-D render coordinate. The engine computes moves in
// ring-index/relative-position space only; hints exist solely so a renderer
// can place lane and home-yard cells without owning geometry itself.
type CellHint struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// laneGeometry and homeGeometry are the injected read-only render tables,
// indexed by color. They are lookups on a 15x15 grid and carry no game
// meaning.
var laneGeometry = map[Color][LaneSize]CellHint{
	ColorRed:    {{1, 7}, {2, 7}, {3, 7}, {4, 7}, {5, 7}, {6, 7}},
	ColorBlue:   {{7, 1}, {7, 2}, {7, 3}, {7, 4}, {7, 5}, {7, 6}},
	ColorGreen:  {{13, 7}, {12, 7}, {11, 7}, {10, 7}, {9, 7}, {8, 7}},
	ColorYellow: {{7, 13}, {7, 12}, {7, 11}, {7, 10}, {7, 9}, {7, 8}},
}

var homeGeometry = map[Color][TokensPerPlayer]CellHint{
	ColorRed:    {{2, 2}, {3, 2}, {2, 3}, {3, 3}},
	ColorBlue:   {{11, 2}, {12, 2}, {11, 3}, {12, 3}},
	ColorGreen:  {{11, 11}, {12, 11}, {11, 12}, {12, 12}},
	ColorYellow: {{2, 11}, {3, 11}, {2, 12}, {3, 12}},
}

// LaneCell returns the render hint for the color's lane cell i (0..5).
func LaneCell(c Color, i int) (CellHint, error) {
	if i < 0 || i >= LaneSize {
		return CellHint{}, fmt.Errorf("engine: lane index %d out of range", i)
	}
	return laneGeometry[c][i], nil
}

// HomeSlot returns the render hint for the color's home-yard slot i (0..3).
func HomeSlot(c Color, i int) (CellHint, error) {
	if i < 0 || i >= TokensPerPlayer {
		return CellHint{}, fmt.Errorf("engine: home slot %d out of range", i)
	}
	return homeGeometry[c][i], nil
}

// selfCheck verifies the static geometry invariants: ring size, start
// spacing, star derivation, lane-entry placement, and that the safe set is
// exactly the starts plus the stars.
func selfCheck() error {
	if len(colorStart) != 4 {
		return fmt.Errorf("engine: board has %d colors, want 4", len(colorStart))
	}
	for i, c := range SeatOrder {
		want := i * (RingSize / 4)
		if colorStart[c] != want {
			return fmt.Errorf("engine: %s start offset = %d, want %d", c, colorStart[c], want)
		}
		if got := LaneEntryCell(c); got != (colorStart[c]-1+RingSize)%RingSize {
			return fmt.Errorf("engine: %s lane entry = %d, inconsistent with start %d", c, got, colorStart[c])
		}
	}
	safeCount := 0
	for abs := 0; abs < RingSize; abs++ {
		if !safeCells[abs] {
			continue
		}
		safeCount++
		isStart, isStar := false, false
		for _, start := range colorStart {
			if abs == start {
				isStart = true
			}
			if abs == (start+starDistance)%RingSize {
				isStar = true
			}
		}
		if !isStart && !isStar {
			return fmt.Errorf("engine: cell %d marked safe but is neither start nor star", abs)
		}
	}
	if safeCount != 8 {
		return fmt.Errorf("engine: %d safe cells, want 8", safeCount)
	}
	// Round-trip: relative -> absolute -> relative must be the identity.
	for _, c := range SeatOrder {
		for rel := 0; rel <= PosRingMax; rel++ {
			if ToRelative(ToAbsolute(rel, c), c) != rel {
				return fmt.Errorf("engine: ring round-trip broken for %s at %d", c, rel)
			}
		}
	}
	return nil
}
