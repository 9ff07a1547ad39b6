package controller

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Verb names a controller command.
type Verb string

const (
	VerbPause   Verb = "pause"
	VerbResume  Verb = "resume"
	VerbStop    Verb = "stop"
	VerbStatus  Verb = "status"
	VerbExit    Verb = "exit"
	VerbHelp    Verb = "help"
	VerbSleep   Verb = "sleep"
	VerbMetrics Verb = "metrics"
)

// takesArg reports whether the verb requires a numeric argument.
func (v Verb) takesArg() bool {
	switch v {
	case VerbPause, VerbResume, VerbStop, VerbSleep:
		return true
	}
	return false
}

func (v Verb) known() bool {
	switch v {
	case VerbPause, VerbResume, VerbStop, VerbStatus, VerbExit, VerbHelp, VerbSleep, VerbMetrics:
		return true
	}
	return false
}

// Command is one parsed controller command. Arg holds the worker id (1-based)
// or, for sleep, the number of seconds.
type Command struct {
	Verb Verb
	Arg  int
}

// String returns the canonical form echoed for non-interactive input.
func (c Command) String() string {
	if c.Verb.takesArg() {
		return fmt.Sprintf("%s %d", c.Verb, c.Arg)
	}
	return string(c.Verb)
}

// ErrEmpty is returned by Parse for a blank line.
var ErrEmpty = errors.New("empty command")

// UnknownCommandError reports a verb that is not recognised.
type UnknownCommandError struct {
	Verb string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Verb)
}

// MissingArgError reports a missing or non-numeric argument.
type MissingArgError struct {
	Verb Verb
}

func (e *MissingArgError) Error() string {
	return fmt.Sprintf("%s: missing or non-numeric argument", e.Verb)
}

// Parse parses one input line. Tokens after the argument are ignored.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmpty
	}

	verb := Verb(fields[0])
	if !verb.known() {
		return Command{}, &UnknownCommandError{Verb: fields[0]}
	}
	if !verb.takesArg() {
		return Command{Verb: verb}, nil
	}

	if len(fields) < 2 {
		return Command{}, &MissingArgError{Verb: verb}
	}
	arg, err := strconv.Atoi(fields[1])
	if err != nil {
		return Command{}, &MissingArgError{Verb: verb}
	}
	return Command{Verb: verb, Arg: arg}, nil
}
