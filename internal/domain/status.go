package domain

import "strings"

// StatusTag is the demand state the classifier assigns to a SKU at one
// location. The set is closed; every reachable input maps to exactly one tag.
type StatusTag string

const (
	StatusNew     StatusTag = "new"
	StatusCold    StatusTag = "cold"
	StatusHot     StatusTag = "hot"
	StatusReorder StatusTag = "reorder"
	StatusGood    StatusTag = "good"
	StatusDead    StatusTag = "dead"
	StatusMinimal StatusTag = "minimal"
)

var statusSymbols = map[StatusTag]string{
	StatusNew:     "✨ New",
	StatusCold:    "❄️ Cold",
	StatusHot:     "🔥 Hot",
	StatusReorder: "🚨 Reorder",
	StatusGood:    "✅ Good",
	StatusDead:    "💀 Dead",
	StatusMinimal: "➖",
}

// Symbol returns the presentation label used in the order workbook.
func (s StatusTag) Symbol() string {
	if sym, ok := statusSymbols[s]; ok {
		return sym
	}
	return string(s)
}

// ParseStatusTag resolves a tag from its wire form (case-insensitive).
func ParseStatusTag(s string) (StatusTag, bool) {
	tag := StatusTag(strings.ToLower(strings.TrimSpace(s)))
	_, ok := statusSymbols[tag]
	return tag, ok
}
