// Package crypto gates persisted store data behind a passphrase. It derives
// a 32-byte key with Argon2id and seals small payloads (the store key
// verifier) with AES-256-GCM. Document bodies themselves are not encrypted;
// the passphrase gate protects the store from being opened with the wrong
// credentials.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/argon2"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// Argon2id parameters: 64 MiB memory, 3 iterations, single lane.
const (
	argonMemory  = 64 * 1024
	argonTime    = 3
	argonThreads = 1

	KeySize  = 32
	SaltSize = 16
)

// NewSalt returns a fresh random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, types.NewError(types.CodeRuntime, "generating salt", err)
	}
	return salt, nil
}

// DeriveKey stretches a passphrase and salt into a 32-byte key.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, KeySize)
}

// Seal encrypts plaintext with AES-256-GCM under key and returns a base64
// string with the nonce prepended.
func Seal(plaintext, key []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", types.NewError(types.CodeRuntime, "generating nonce", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. A wrong key fails authentication and returns an
// invalid-argument error, which the store reports as a bad passphrase.
func Open(encoded string, key []byte) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, types.NewError(types.CodeInvalidArgument, "decoding sealed payload", err)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, types.Errorf(types.CodeInvalidArgument, "sealed payload too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, types.NewError(types.CodeInvalidArgument, "opening sealed payload", err)
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, types.NewError(types.CodeInvalidArgument, "initializing cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, types.NewError(types.CodeRuntime, "initializing GCM", err)
	}
	return aead, nil
}

// EncodeSalt and DecodeSalt keep the salt printable for metadata files.
func EncodeSalt(salt []byte) string { return hex.EncodeToString(salt) }

// DecodeSalt parses a salt previously written with EncodeSalt.
func DecodeSalt(s string) ([]byte, error) {
	salt, err := hex.DecodeString(s)
	if err != nil {
		return nil, types.NewError(types.CodeRuntime, "stored salt is not valid hex", err)
	}
	return salt, nil
}
