// Package session owns the conversation state of one question-answering
// session. A History belongs to exactly one session and must not be shared
// across sessions; within a session, questions are processed strictly in
// order, so no locking is needed.
package session

// Turn is one answered question: the question as the user asked it and the
// answer that was returned.
type Turn struct {
	Question string
	Answer   string
}

// History is the append-only sequence of turns of one session. It starts
// empty and grows only through Append; entries are never mutated in place.
type History struct {
	turns []Turn
}

// NewHistory creates an empty History for a new session.
func NewHistory() *History {
	return &History{}
}

// Append records an answered question. Failed questions must not be appended.
func (h *History) Append(question, answer string) {
	h.turns = append(h.turns, Turn{Question: question, Answer: answer})
}

// Turns returns a copy of the recorded turns in order.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len reports the number of recorded turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Empty reports whether no turn has been recorded yet.
func (h *History) Empty() bool {
	return len(h.turns) == 0
}
