package entity

import (
	"strings"
	"unicode/utf8"
)

// Symbol is the mark a player places on the board.
type Symbol string

const (
	SymbolX Symbol = "X"
	SymbolO Symbol = "O"
)

func (that Symbol) IsValid() bool {
	return that == SymbolX || that == SymbolO
}

type Player struct {
	Name   string `json:"name"`
	Symbol Symbol `json:"symbol"`
}

// ValidName reports whether name is non-blank and at most maxLen runes long.
func ValidName(name string, maxLen int) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}

	return utf8.RuneCountInString(name) <= maxLen
}
