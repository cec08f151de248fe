package services

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
)

const recipientTokenBytes = 32

// newRecipientToken returns the secret a recipient uses to open their signing link
func newRecipientToken() (string, error) {
	buf := make([]byte, recipientTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate recipient token")
	}
	return hex.EncodeToString(buf), nil
}
