// Package fieldcrypt protects sensitive identifiers at rest and hashes
// member passwords.
//
// Encrypt seals values with AES-GCM under a single process-wide key. Each
// call draws a fresh nonce which is stored in front of the sealed bytes, so
// equal plaintexts produce different ciphertexts.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// TextCodeCrypto is attached to every error returned by Decrypt and Encrypt.
const TextCodeCrypto = "CRYPTO_FAILURE"

// Argon2id parameters used by NewCodecFromPassphrase.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	keyLength    = 32
)

// Codec encrypts identifiers and hashes passwords.
type Codec struct {
	aead       cipher.AEAD
	bcryptCost int
}

// Option configures a Codec.
type Option func(*Codec)

// WithBcryptCost overrides the bcrypt cost used by HashPassword.
func WithBcryptCost(cost int) Option {
	return func(c *Codec) {
		c.bcryptCost = cost
	}
}

// NewCodec creates a codec from a 16, 24 or 32 byte AES key.
func NewCodec(key []byte, opts ...Option) (*Codec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, cryptoError(err, "invalid encryption key")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cryptoError(err, "init gcm")
	}

	c := &Codec{aead: aead, bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewCodecFromPassphrase derives a 256 bit key from passphrase with argon2id.
func NewCodecFromPassphrase(passphrase string, salt []byte, opts ...Option) (*Codec, error) {
	if passphrase == "" {
		return nil, cryptoError(errors.New("empty passphrase"), "invalid encryption key")
	}
	if len(salt) < 8 {
		return nil, cryptoError(errors.New("salt shorter than 8 bytes"), "invalid encryption key")
	}
	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyLength)
	return NewCodec(key, opts...)
}

// Encrypt returns base64(nonce || ciphertext) of plaintext.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", cryptoError(err, "generate nonce")
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Input that Encrypt did not produce under the same
// key fails with a crypto error.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", cryptoError(err, "decode ciphertext")
	}

	size := c.aead.NonceSize()
	if len(raw) < size+c.aead.Overhead() {
		return "", cryptoError(errors.New("ciphertext too short"), "decode ciphertext")
	}

	plain, err := c.aead.Open(nil, raw[:size], raw[size:], nil)
	if err != nil {
		return "", cryptoError(err, "authenticate ciphertext")
	}
	return string(plain), nil
}

// HashPassword returns a salted bcrypt hash of password.
func (c *Codec) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.bcryptCost)
	if err != nil {
		return "", cryptoError(err, "hash password")
	}
	return string(hash), nil
}

// VerifyPassword reports whether candidate matches hash. A malformed hash is
// a mismatch.
func (c *Codec) VerifyPassword(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// LastFour returns value when it has at most four characters and its last
// four characters otherwise. Blank input yields "".
func LastFour(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	if utf8.RuneCountInString(value) <= 4 {
		return value
	}
	runes := []rune(value)
	return string(runes[len(runes)-4:])
}

func cryptoError(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("fieldcrypt: %s", msg)).
		WithTextCode(TextCodeCrypto)
}

// IsCryptoError reports whether err came from this package.
func IsCryptoError(err error) bool {
	var typed *goerrors.Error
	return errors.As(err, &typed) && typed.TextCode == TextCodeCrypto
}
