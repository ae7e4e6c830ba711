package common

import "fmt"

// Align8 rounds the given integer up to the nearest multiple of 8.
func Align8(n int) int {
	return (n + 7) &^ 7
}

// AlignedTo8 returns true if the integer is a multiple of 8.
func AlignedTo8(n int) bool {
	return n%8 == 0
}

// Assert checks an invariant and panics if it is violated. Use it for
// conditions that must hold if the kernel's internal logic is correct
// (continuing past a broken invariant risks persisting corrupted data);
// return an error instead for anything the caller could plausibly cause,
// such as bad input or I/O failure.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
