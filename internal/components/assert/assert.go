package assert

import "fmt"

// NotNil panics if value is nil, it is meant for collaborators that must be
// provided at construction time.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

// InRange panics if n is outside of [min, max].
func InRange(name string, n, min, max int) {
	if n < min || n > max {
		panic(fmt.Sprintf("expected %s to be within [%d, %d], got %d", name, min, max, n))
	}
}
