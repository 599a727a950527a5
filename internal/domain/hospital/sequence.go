package hospital

import (
	"fmt"
	"strconv"
	"strings"
)

// Sequence hands out strictly increasing numbers and formats them as ids.
// Sequences live inside the store state so independent stores never share
// counters, and a failed operation rolls its draws back with the rest of
// the state.
type Sequence struct {
	Prefix string
	Width  int
	Last   int
}

// Next advances the sequence and returns the new value.
func (s *Sequence) Next() int {
	s.Last++
	return s.Last
}

// NextID advances the sequence and returns the formatted id.
func (s *Sequence) NextID() string {
	return s.Format(s.Next())
}

// Format renders n with the sequence prefix, zero-padded to Width digits.
func (s Sequence) Format(n int) string {
	return fmt.Sprintf("%s%0*d", s.Prefix, s.Width, n)
}

// Observe moves the sequence past an existing id so seeded records are never
// reissued. Ids with a different prefix or a non-numeric suffix are ignored.
func (s *Sequence) Observe(id string) {
	if !strings.HasPrefix(id, s.Prefix) {
		return
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, s.Prefix))
	if err != nil {
		return
	}
	s.ObserveValue(n)
}

// ObserveValue moves the sequence past n.
func (s *Sequence) ObserveValue(n int) {
	if n > s.Last {
		s.Last = n
	}
}

type sequences struct {
	patient      Sequence
	token        Sequence
	prescription Sequence
	medicine     Sequence
}

// defaultSequences yields P1001…, token 101…, RX00001… and M001….
func defaultSequences() sequences {
	return sequences{
		patient:      Sequence{Prefix: "P", Last: 1000},
		token:        Sequence{Last: 100},
		prescription: Sequence{Prefix: "RX", Width: 5},
		medicine:     Sequence{Prefix: "M", Width: 3},
	}
}
