package domain

import (
	"strings"
)

// Level stores one named badge state and the totals required to reach it.
type Level struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	MicroThreshold    int    `json:"micro_threshold"`
	EvidenceThreshold int    `json:"evidence_threshold"`
	Placeholder       bool   `json:"placeholder,omitempty"`
}

// LevelInput holds values for level normalization.
type LevelInput struct {
	ID                string
	Name              string
	MicroThreshold    int
	EvidenceThreshold int
	Placeholder       bool
}

// NewLevel validates and normalizes one level definition.
func NewLevel(in LevelInput) (Level, error) {
	in.ID = strings.TrimSpace(strings.ToLower(in.ID))
	in.Name = strings.TrimSpace(in.Name)
	if in.ID == "" {
		return Level{}, ErrInvalidLevelID
	}
	if in.Name == "" {
		return Level{}, ErrInvalidLevelName
	}
	if in.MicroThreshold < 0 || in.EvidenceThreshold < 0 {
		return Level{}, ErrInvalidThreshold
	}
	return Level{
		ID:                in.ID,
		Name:              in.Name,
		MicroThreshold:    in.MicroThreshold,
		EvidenceThreshold: in.EvidenceThreshold,
		Placeholder:       in.Placeholder,
	}, nil
}

// Satisfied reports whether the clamped totals meet every threshold.
func (l Level) Satisfied(micro, evidence int) bool {
	return !l.Placeholder && micro >= l.MicroThreshold && evidence >= l.EvidenceThreshold
}

// LevelLadder stores an ordered list of levels from initial to terminal.
type LevelLadder struct {
	levels []Level
}

// LevelDecision stores the derived current and next level for a set of totals.
type LevelDecision struct {
	Current Level  `json:"current"`
	Next    *Level `json:"next,omitempty"`
}

// DefaultLevels returns the stock Torpor to Ala Dorada ladder.
func DefaultLevels() []Level {
	return []Level{
		{ID: "torpor", Name: "Torpor"},
		{ID: "n1", Name: "Semilla de Luz (N1)", MicroThreshold: 21, EvidenceThreshold: 7},
		{ID: "n2", Name: "Ala Dorada (N2)", MicroThreshold: 21, EvidenceThreshold: 7, Placeholder: true},
	}
}

// DefaultLevelLadder returns the stock ladder.
func DefaultLevelLadder() LevelLadder {
	ladder, err := NewLevelLadder(DefaultLevels())
	if err != nil {
		panic(err)
	}
	return ladder
}

// NewLevelLadder validates an ordered level list.
// The first level must have no requirement and must be attainable; ids must be
// unique; attainable levels must not lower either threshold.
func NewLevelLadder(levels []Level) (LevelLadder, error) {
	if len(levels) == 0 {
		return LevelLadder{}, ErrInvalidLadder
	}
	out := make([]Level, 0, len(levels))
	seen := map[string]struct{}{}
	var prev Level
	for idx, raw := range levels {
		level, err := NewLevel(LevelInput(raw))
		if err != nil {
			return LevelLadder{}, err
		}
		if _, ok := seen[level.ID]; ok {
			return LevelLadder{}, ErrInvalidLadder
		}
		seen[level.ID] = struct{}{}
		if idx == 0 {
			if level.Placeholder || level.MicroThreshold != 0 || level.EvidenceThreshold != 0 {
				return LevelLadder{}, ErrInvalidLadder
			}
		} else if !level.Placeholder {
			if level.MicroThreshold < prev.MicroThreshold || level.EvidenceThreshold < prev.EvidenceThreshold {
				return LevelLadder{}, ErrInvalidThreshold
			}
		}
		if !level.Placeholder {
			prev = level
		}
		out = append(out, level)
	}
	return LevelLadder{levels: out}, nil
}

// Levels returns a copy of the ordered levels.
func (l LevelLadder) Levels() []Level {
	return append([]Level(nil), l.levels...)
}

// Initial returns the first level of the ladder.
func (l LevelLadder) Initial() Level {
	if len(l.levels) == 0 {
		return Level{}
	}
	return l.levels[0]
}

// Resolve derives the current and next level from clamped totals.
// Placeholder levels can be reported as next but never become current, and no
// level past a placeholder is reachable.
func (l LevelLadder) Resolve(micro, evidence int) LevelDecision {
	if len(l.levels) == 0 {
		return LevelDecision{}
	}
	current := 0
	for idx := 1; idx < len(l.levels); idx++ {
		level := l.levels[idx]
		if level.Placeholder {
			break
		}
		if level.Satisfied(micro, evidence) {
			current = idx
		}
	}
	decision := LevelDecision{Current: l.levels[current]}
	if current+1 < len(l.levels) {
		next := l.levels[current+1]
		decision.Next = &next
	}
	return decision
}
