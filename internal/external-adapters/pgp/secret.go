// Package pgp reads signing secrets that may be stored OpenPGP-encrypted at rest.
package pgp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

const armorHeader = "-----BEGIN PGP MESSAGE-----"

// ErrPassphraseRequired is returned for an encrypted secret without a passphrase
var ErrPassphraseRequired = errors.New("secret file is encrypted but no passphrase was given")

// ReadSecret reads a secret from path. The file may hold the secret as plain text,
// or as an ASCII-armored or binary OpenPGP message encrypted with passphrase.
func ReadSecret(path, passphrase string) (string, error) {
	//nolint:gosec // G304: path is the configured secret file
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return DecodeSecret(data, passphrase)
}

// DecodeSecret is ReadSecret over bytes already in memory
func DecodeSecret(data []byte, passphrase string) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("secret is empty")
	}

	var body io.Reader
	switch {
	case bytes.HasPrefix(trimmed, []byte(armorHeader)):
		block, err := armor.Decode(bytes.NewReader(trimmed))
		if err != nil {
			return "", fmt.Errorf("failed to decode armored message: %w", err)
		}
		body = block.Body
	case trimmed[0]&0x80 != 0:
		// OpenPGP packet tag byte; plain-text keys are ASCII
		body = bytes.NewReader(data)
	default:
		return string(trimmed), nil
	}

	if passphrase == "" {
		return "", ErrPassphraseRequired
	}
	return decrypt(body, []byte(passphrase))
}

func decrypt(body io.Reader, passphrase []byte) (string, error) {
	prompted := false
	prompt := func(_ []openpgp.Key, symmetric bool) ([]byte, error) {
		if !symmetric {
			return nil, fmt.Errorf("secret is encrypted to a public key, only passphrase encryption is supported")
		}
		if prompted {
			return nil, fmt.Errorf("incorrect passphrase")
		}
		prompted = true
		return passphrase, nil
	}

	md, err := openpgp.ReadMessage(body, openpgp.EntityList{}, prompt, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret: %w", err)
	}

	plain, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return "", fmt.Errorf("failed to read decrypted secret: %w", err)
	}

	secret := strings.TrimSpace(string(plain))
	if secret == "" {
		return "", fmt.Errorf("decrypted secret is empty")
	}
	return secret, nil
}
