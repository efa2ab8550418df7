package compiler

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a configuration error at a source position. Field is the
// configuration path the error belongs to ("aspect.overhead.rules[0].to").
//
// CUE evaluation can fail at several places at once. The earliest failure
// becomes the error itself and the others are listed in More, in source
// order, so one run reports every position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	More    []*CompileError
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	e.writeTo(&sb)
	for _, m := range e.More {
		sb.WriteByte('\n')
		m.writeTo(&sb)
	}
	return sb.String()
}

func (e *CompileError) writeTo(sb *strings.Builder) {
	if e.Pos.IsValid() {
		fmt.Fprintf(sb, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	fmt.Fprintf(sb, "%s: %s", e.Field, e.Message)
}

// All returns the error followed by every additional failure.
func (e *CompileError) All() []*CompileError {
	return append([]*CompileError{e}, e.More...)
}

// cueError converts a CUE evaluation error into a CompileError that carries
// every failure CUE reported. Errors that are not CUE errors pass through.
func cueError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	all := make([]*CompileError, 0, len(errs))
	for _, e := range errs {
		ce := &CompileError{Field: "cue", Message: e.Error()}
		if path := e.Path(); len(path) > 0 {
			ce.Field = strings.Join(path, ".")
			format, args := e.Msg()
			ce.Message = fmt.Sprintf(format, args...)
		}
		if positions := errors.Positions(e); len(positions) > 0 {
			ce.Pos = positions[0]
		}
		all = append(all, ce)
	}
	slices.SortStableFunc(all, comparePos)

	first := all[0]
	first.More = all[1:]
	if len(first.More) == 0 {
		first.More = nil
	}
	return first
}

// comparePos orders by file, line and column. Errors without a position
// sort last.
func comparePos(a, b *CompileError) int {
	switch {
	case !a.Pos.IsValid() && !b.Pos.IsValid():
		return 0
	case !b.Pos.IsValid():
		return -1
	case !a.Pos.IsValid():
		return 1
	}
	return cmp.Or(
		cmp.Compare(a.Pos.Filename(), b.Pos.Filename()),
		cmp.Compare(a.Pos.Line(), b.Pos.Line()),
		cmp.Compare(a.Pos.Column(), b.Pos.Column()),
	)
}
