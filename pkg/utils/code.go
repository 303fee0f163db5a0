package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeAlphabet leaves out 0/O and 1/I/L so codes survive being read aloud.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// InviteCodeLength is the length of team and judge invite codes.
const InviteCodeLength = 8

// RandomCode returns a random code of n characters from an unambiguous alphabet.
func RandomCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid code length %d", n)
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// NewInviteCode returns a fresh invite code.
func NewInviteCode() (string, error) {
	return RandomCode(InviteCodeLength)
}
