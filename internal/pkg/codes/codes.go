package codes

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet without ambiguous characters (no 0/O, 1/I/L) so codes survive
// being read aloud or typed from paper.
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	groupSize  = 4
	groupCount = 4
)

// GenerateRedeemCode creates a cryptographically secure redeem code in the
// form OLLY-XXXX-XXXX-XXXX-XXXX.
func GenerateRedeemCode() (string, error) {
	raw, err := GenerateSecureToken(groupSize * groupCount)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, groupCount+1)
	parts = append(parts, "OLLY")
	for i := 0; i < groupCount; i++ {
		parts = append(parts, raw[i*groupSize:(i+1)*groupSize])
	}
	return strings.Join(parts, "-"), nil
}

// GenerateSecureToken creates a cryptographically secure random token over
// the code alphabet.
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid token length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 248 is the largest multiple of 31 below 256.
	const maxRandomByte = 248

	token := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			token[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(token), nil
}

// Normalize uppercases a user-supplied code and strips surrounding
// whitespace. Dashes are kept; codes are stored with them.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateTieredRedeemCode embeds a plan name into the code so the tier can
// be recovered from the key string itself, e.g. OLLY-TEAM-XXXX-XXXX-XXXX-XXXX.
// An empty plan name yields a plain redeem code.
func GenerateTieredRedeemCode(planName string) (string, error) {
	code, err := GenerateRedeemCode()
	if err != nil {
		return "", err
	}
	name := strings.ToUpper(strings.TrimSpace(planName))
	if name == "" {
		return code, nil
	}
	return "OLLY-" + name + strings.TrimPrefix(code, "OLLY"), nil
}
