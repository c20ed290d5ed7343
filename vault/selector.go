// Copyright 2024 Nostalgic Skin Co.
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"fmt"
	"strconv"
)

// LastToken selects the newest entry.
const LastToken = "last"

// Selector picks a history entry for Take.
type Selector struct {
	last  bool
	index int
}

// Last selects the highest valid index.
func Last() Selector { return Selector{last: true} }

// At selects a fixed index.
func At(i int) Selector { return Selector{index: i} }

// ParseSelector accepts "last" or a non-negative decimal index.
func ParseSelector(s string) (Selector, error) {
	if s == LastToken {
		return Last(), nil
	}
	n, err := strconv.ParseUint(s, 10, strconv.IntSize-1)
	if err != nil {
		return Selector{}, fmt.Errorf("%w: invalid selector %q", ErrIndexOutOfRange, s)
	}
	return At(int(n)), nil
}

func (s Selector) String() string {
	if s.last {
		return LastToken
	}
	return strconv.Itoa(s.index)
}

// resolve maps the selector onto a history of length n.
func (s Selector) resolve(n int) (int, error) {
	if n == 0 {
		return 0, fmt.Errorf("%w: history is empty", ErrIndexOutOfRange)
	}
	if s.last {
		return n - 1, nil
	}
	if s.index < 0 || s.index >= n {
		return 0, fmt.Errorf("%w: %d (history has %d entries)", ErrIndexOutOfRange, s.index, n)
	}
	return s.index, nil
}
