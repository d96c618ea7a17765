package stream

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Strategy decodes one logical line into zero or one element. The emit
// flag distinguishes "no element from this line" (comments, blank lines,
// partial accumulation) from an emitted value. A decode error is terminal
// for the whole stream.
type Strategy[T any] interface {
	Decode(line string) (T, bool, error)
}

// StrategyFunc adapts an ordinary function to a Strategy.
type StrategyFunc[T any] func(line string) (T, bool, error)

func (f StrategyFunc[T]) Decode(line string) (T, bool, error) {
	return f(line)
}

// Lines yields every logical line verbatim.
func Lines() Strategy[string] {
	return StrategyFunc[string](func(line string) (string, bool, error) {
		return line, true, nil
	})
}

// LinesFunc yields decode(line) for every logical line. The decoder may
// signal skip (false) to filter lines such as blanks or comments.
func LinesFunc[T any](decode func(line string) (T, bool, error)) Strategy[T] {
	return StrategyFunc[T](decode)
}

// Records decodes each line as one self-contained JSON value of type T.
// Whitespace-only lines are skipped by convention; a line that fails to
// decode ends the stream with an error.
func Records[T any]() Strategy[T] {
	return StrategyFunc[T](func(line string) (T, bool, error) {
		var v T
		if strings.TrimSpace(line) == "" {
			return v, false, nil
		}
		if err := json.UnmarshalFromString(line, &v); err != nil {
			return v, false, fmt.Errorf("record decode failed: %w", err)
		}
		return v, true, nil
	})
}
