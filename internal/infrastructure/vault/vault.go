package vault

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// Credential blobs travel as three hex segments, nonce:tag:ciphertext, so
// the host application can store them as plain text columns. Decryption
// fails closed: every malformed, truncated or tampered blob collapses into
// platform.ErrCredentialDecrypt with no detail about which check tripped.

const (
	// KeySize is the required key length in bytes
	KeySize = chacha20poly1305.KeySize
	// blobSegments is nonce, tag, ciphertext
	blobSegments = 3
)

var (
	// ErrInvalidKey indicates the configured key has the wrong length
	ErrInvalidKey = errors.New("vault: key must be 32 bytes")
	// ErrEmptyCredentials indicates a seal attempt without a username or
	// password; such blobs could never decrypt, so they are never produced
	ErrEmptyCredentials = errors.New("vault: credentials must carry a username and password")
)

// credentialPayload is the plaintext layout inside a sealed blob
type credentialPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Vault seals and opens credential blobs with ChaCha20-Poly1305
type Vault struct {
	key []byte
}

// New creates a vault from a raw 32-byte key
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Vault{key: k}, nil
}

// NewFromHex creates a vault from a hex-encoded 32-byte key, the form the
// key takes in configuration
func NewFromHex(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: not valid hex", ErrInvalidKey)
	}
	return New(key)
}

// Encrypt seals the credentials into a nonce:tag:ciphertext hex blob.
// Credentials missing a username or password are rejected before sealing;
// Decrypt treats them as malformed, so every blob Encrypt emits round-trips.
func (v *Vault) Encrypt(creds platform.Credentials) (string, error) {
	if creds.Username == "" || creds.Password == "" {
		return "", ErrEmptyCredentials
	}

	plaintext, err := json.Marshal(credentialPayload{
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		return "", fmt.Errorf("vault: encode payload: %w", err)
	}

	aead, err := chacha20poly1305.New(v.key)
	if err != nil {
		return "", fmt.Errorf("vault: init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - aead.Overhead()
	ciphertext, tag := sealed[:split], sealed[split:]

	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt opens a blob produced by Encrypt. Any structural problem or
// failed authentication returns platform.ErrCredentialDecrypt.
func (v *Vault) Decrypt(blob string) (platform.Credentials, error) {
	parts := strings.Split(blob, ":")
	if len(parts) != blobSegments {
		return platform.Credentials{}, platform.ErrCredentialDecrypt
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return platform.Credentials{}, platform.ErrCredentialDecrypt
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return platform.Credentials{}, platform.ErrCredentialDecrypt
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return platform.Credentials{}, platform.ErrCredentialDecrypt
	}

	aead, err := chacha20poly1305.New(v.key)
	if err != nil {
		return platform.Credentials{}, platform.ErrCredentialDecrypt
	}
	if len(nonce) != aead.NonceSize() || len(tag) != aead.Overhead() {
		return platform.Credentials{}, platform.ErrCredentialDecrypt
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return platform.Credentials{}, platform.ErrCredentialDecrypt
	}

	var payload credentialPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return platform.Credentials{}, platform.ErrCredentialDecrypt
	}
	if payload.Username == "" || payload.Password == "" {
		return platform.Credentials{}, platform.ErrCredentialDecrypt
	}

	return platform.Credentials{Username: payload.Username, Password: payload.Password}, nil
}

// Ensure Vault implements the domain port
var _ platform.Vault = (*Vault)(nil)
