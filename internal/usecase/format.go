package usecase

import (
	"errors"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	// TruncationMarker is appended when a reply is cut at a code block or paragraph.
	TruncationMarker = "\n\n[...truncated]"
	// EllipsisMarker is appended when a reply is hard-cut mid-text.
	EllipsisMarker = "…"

	codeFence = "```"
)

var (
	ErrEmptyInput   = errors.New("input is empty")
	ErrInputTooLong = errors.New("input is too long")
)

// SanitizeInput trims surrounding whitespace and checks the rune length against maxLen.
func SanitizeInput(text string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyInput
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return trimmed, ErrInputTooLong
	}
	return trimmed, nil
}

// TextLength counts UTF-16 code units, the unit the messaging platform
// measures its message ceiling in. Characters outside the BMP count twice.
func TextLength(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}

// fit returns how many leading runes fit into limit code units.
func fit(runes []rune, limit int) int {
	used := 0
	for i, r := range runes {
		used += utf16.RuneLen(r)
		if used > limit {
			return i
		}
	}
	return len(runes)
}

// MaxMarkerLength is the longest suffix TrimResponse may append.
func MaxMarkerLength() int {
	return max(TextLength(TruncationMarker), TextLength(EllipsisMarker))
}

// TrimResponse shrinks text to fit maxLen code units (see TextLength),
// preferring safe cut points:
//  1. a code fence inside the window: cut at maxLen, leave the fence open
//  2. a paragraph break before maxLen minus the marker: cut there
//  3. otherwise hard-cut so text plus ellipsis is at most maxLen
//
// The result never exceeds maxLen plus the marker length and never splits
// a character. The second return value reports whether anything was cut.
func TrimResponse(text string, maxLen int) (string, bool) {
	text = strings.TrimSpace(text)
	if TextLength(text) <= maxLen {
		return text, false
	}
	if maxLen <= 0 {
		return EllipsisMarker, true
	}

	runes := []rune(text)
	window := string(runes[:fit(runes, maxLen)])

	if strings.Contains(window, codeFence) {
		return window + TruncationMarker, true
	}

	margin := TextLength(TruncationMarker)
	if limit := maxLen - margin; limit > 0 {
		head := string(runes[:fit(runes, limit)])
		if idx := strings.LastIndex(head, "\n\n"); idx > 0 {
			if cut := strings.TrimRight(head[:idx], " \t\r\n"); cut != "" {
				return cut + TruncationMarker, true
			}
		}
	}

	keep := fit(runes, maxLen-TextLength(EllipsisMarker))
	return strings.TrimRight(string(runes[:keep]), " \t\r\n") + EllipsisMarker, true
}
