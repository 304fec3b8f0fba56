package utils

import (
	"math/rand"

	"github.com/google/uuid"
)

// Joincode alphabet excludes characters that are easy to misread when shared
// verbally or scribbled on paper (no I, O, 0, 1).
const JoincodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// JoincodeLength is the number of characters in a generated joincode.
const JoincodeLength = 6

// GenerateJoincode returns a random candidate joincode. Uniqueness against
// live matches is the caller's responsibility (draw-and-check loop).
func GenerateJoincode() string {
	code := make([]byte, JoincodeLength)
	for i := range code {
		code[i] = JoincodeAlphabet[rand.Intn(len(JoincodeAlphabet))]
	}
	return string(code)
}

// GenerateToken returns a fresh session bearer token (UUID v4).
func GenerateToken() string {
	return uuid.NewString()
}
