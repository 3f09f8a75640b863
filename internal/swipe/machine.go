package swipe

import "gitea.kood.tech/petrkubec/linkvibez/internal/wingman"

const (
	// DragThreshold is the horizontal displacement a release must exceed
	// to count as a decision.
	DragThreshold = 100.0
	// MatchThreshold is the lowest chemistry score that shows the match overlay.
	MatchThreshold = 85
)

type State int

const (
	Browsing State = iota
	MatchShown
	Exhausted
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case MatchShown:
		return "match_shown"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

type Decision int

const (
	NoDecision Decision = iota
	Like
	Pass
)

func (d Decision) String() string {
	switch d {
	case Like:
		return "like"
	case Pass:
		return "pass"
	}
	return "none"
}

// Classify maps a drag release to a decision. Releases within
// [-DragThreshold, DragThreshold] decide nothing.
func Classify(dx float64) Decision {
	switch {
	case dx > DragThreshold:
		return Like
	case dx < -DragThreshold:
		return Pass
	}
	return NoDecision
}

// Machine is the swipe state machine over a deck of a fixed size.
// The cursor only moves forward; Exhausted is terminal.
type Machine struct {
	state  State
	cursor int
	size   int
}

func NewMachine(size int) *Machine {
	m := &Machine{size: size}
	if size <= 0 {
		m.state, m.cursor = Exhausted, -1
	}
	return m
}

func (m *Machine) State() State { return m.state }

// Cursor returns the current deck index, or -1 once exhausted.
func (m *Machine) Cursor() int { return m.cursor }

// Release applies a drag release while browsing and returns the decision
// taken. A like with a score at or above MatchThreshold holds the cursor in
// MatchShown; any other decision advances.
func (m *Machine) Release(dx float64, score wingman.Score) Decision {
	if m.state != Browsing {
		return NoDecision
	}
	d := Classify(dx)
	switch d {
	case Like:
		if score.Valid && score.Value >= MatchThreshold {
			m.state = MatchShown
			return d
		}
		m.advance()
	case Pass:
		m.advance()
	}
	return d
}

// Dismiss leaves the match overlay. It reports false outside MatchShown.
func (m *Machine) Dismiss() bool {
	if m.state != MatchShown {
		return false
	}
	m.advance()
	return true
}

func (m *Machine) advance() {
	if m.cursor+1 < m.size {
		m.cursor++
		m.state = Browsing
		return
	}
	m.state, m.cursor = Exhausted, -1
}
