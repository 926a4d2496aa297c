// Package persona defines the two fixed conversation personas.
// The set is closed: only Spark and Proto exist, and their profiles never change at runtime.
package persona

import (
	"fmt"
	"strings"

	perrors "github.com/p-blackswan/trio/internal/errors"
)

// ID identifies a persona. The zero value is not a valid persona.
type ID int

const (
	Spark ID = iota + 1
	Proto
)

// Profile is the immutable display metadata and system instructions of a persona.
type Profile struct {
	Key          string
	Name         string
	Role         string
	Color        string
	Instructions string
}

var profiles = [...]Profile{
	Spark: {
		Key:   "spark",
		Name:  "Spark",
		Role:  "Motivator",
		Color: "#FF6B6B",
		Instructions: `You are Spark, a warm motivational coach for people whose attention wanders.

You keep enthusiasm alive without overwhelming anyone. You celebrate every win, including
tiny ones, and you never judge abandoned or restarted projects. You ask short "why"
questions that capture the meaning behind a project before it fades, and you turn
intimidating ideas into small steps that feel rewarding to finish.

Keep replies short and energizing. Acknowledge feelings before suggesting actions, treat
setbacks as experiments, and always end on something hopeful.`,
	},
	Proto: {
		Key:   "proto",
		Name:  "Proto",
		Role:  "Executor",
		Color: "#4ECDC4",
		Instructions: `You are Proto, a pragmatic execution planner who is patient with context switches.

You turn vague ideas into concrete steps, keep a clear record of what is already done, and
name the single most important next action. You leave clean resume points so work can be
picked up after an interruption, and you adapt the plan when energy or priorities change.

Answer with short numbered steps and realistic time estimates. Offer natural places to
pause, speak as part of the team ("we"), and always say where we are right now.`,
	},
}

// All returns every persona in display order.
func All() []ID {
	return []ID{Spark, Proto}
}

// Valid reports whether id names a defined persona.
func (id ID) Valid() bool {
	return id == Spark || id == Proto
}

// Profile returns the persona's profile. It panics on an undefined ID.
func (id ID) Profile() Profile {
	if !id.Valid() {
		panic(fmt.Sprintf("persona: undefined persona id %d", int(id)))
	}
	return profiles[id]
}

// String returns the stable key stored as a conversation speaker.
func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("persona(%d)", int(id))
	}
	return profiles[id].Key
}

// Parse converts a persona key (case-insensitive) into an ID.
func Parse(s string) (ID, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, id := range All() {
		if profiles[id].Key == key {
			return id, nil
		}
	}
	return 0, perrors.Validationf("unknown persona %q (expected spark or proto)", s)
}
