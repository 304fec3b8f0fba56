package utils

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

const avatarSize = 128

// GeneratePlayerAvatar renders an initials avatar for a player name as an SVG
// data URI. The avatar is computed once at session creation and stored; the
// pastel background hue is random, so two sessions with the same name still
// get distinguishable avatars.
func GeneratePlayerAvatar(name string) string {
	initials := avatarInitials(name)

	// Pastel background with a darker text tone on the same hue.
	hue := rand.Intn(360)
	bgColor := fmt.Sprintf("hsl(%d, 70%%, 80%%)", hue)
	textColor := fmt.Sprintf("hsl(%d, 70%%, 30%%)", hue)

	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+
			`<circle cx="%d" cy="%d" r="%d" fill="%s" />`+
			`<text x="50%%" y="50%%" dominant-baseline="middle" text-anchor="middle" fill="%s" font-family="Arial, Helvetica, sans-serif" font-weight="bold" font-size="64">%s</text>`+
			`</svg>`,
		avatarSize, avatarSize, avatarSize/2, avatarSize/2, avatarSize/2, bgColor, textColor, initials,
	)

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// avatarInitials picks up to two letters: first two of a single-word name,
// otherwise the first letter of the first and last words.
func avatarInitials(name string) string {
	words := strings.Fields(strings.TrimSpace(name))
	if len(words) == 0 {
		return ""
	}

	var initials []rune
	if len(words) == 1 {
		runes := []rune(words[0])
		initials = append(initials, runes[0])
		if len(runes) > 1 {
			initials = append(initials, runes[1])
		}
	} else {
		initials = append(initials, []rune(words[0])[0], []rune(words[len(words)-1])[0])
	}

	for i, r := range initials {
		initials[i] = unicode.ToUpper(r)
	}
	return string(initials)
}
