package domain

import "time"

// Fact is a single cat fact.
type Fact struct {
	Text string `json:"text"`
}

// NewFact wraps text into a Fact.
func NewFact(text string) Fact {
	return Fact{Text: text}
}

func (f Fact) String() string {
	return f.Text
}

// Tick is one timer event from the local generator.
type Tick struct {
	Seq uint64
	At  time.Time
}
