package vault

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	return key
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{"32 byte key", 32, false},
		{"short key", 16, true},
		{"long key", 64, true},
		{"empty key", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(make([]byte, tt.keyLen))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				assert.Nil(t, v)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, v)
			}
		})
	}
}

func TestNewFromHex(t *testing.T) {
	v, err := NewFromHex("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	assert.NotNil(t, v)

	_, err = NewFromHex("not-hex")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewFromHex("0011")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestVault_RoundTrip(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	creds := platform.Credentials{Username: "seller@example.com", Password: "s3cret!pass"}

	blob, err := v.Encrypt(creds)
	require.NoError(t, err)

	parts := strings.Split(blob, ":")
	require.Len(t, parts, 3)
	nonce, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, nonce, 12)
	tag, err := hex.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, tag, 16)

	got, err := v.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, creds.Username, got.Username)
	assert.Equal(t, creds.Password, got.Password)
}

func TestVault_EncryptRejectsEmptyCredentials(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	tests := []struct {
		name  string
		creds platform.Credentials
	}{
		{"no username", platform.Credentials{Password: "p"}},
		{"no password", platform.Credentials{Username: "u"}},
		{"both empty", platform.Credentials{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := v.Encrypt(tt.creds)
			assert.ErrorIs(t, err, ErrEmptyCredentials)
			assert.Empty(t, blob)
		})
	}
}

func TestVault_EncryptIsNonDeterministic(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	creds := platform.Credentials{Username: "u", Password: "p"}
	a, err := v.Encrypt(creds)
	require.NoError(t, err)
	b, err := v.Encrypt(creds)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "fresh nonce per encryption")
}

func TestVault_DecryptFailsClosed(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	blob, err := v.Encrypt(platform.Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	parts := strings.Split(blob, ":")

	flipHexByte := func(s string) string {
		b, err := hex.DecodeString(s)
		require.NoError(t, err)
		b[0] ^= 0xff
		return hex.EncodeToString(b)
	}

	tests := []struct {
		name string
		blob string
	}{
		{"empty blob", ""},
		{"wrong segment count", "aabb:ccdd"},
		{"four segments", blob + ":ff"},
		{"not hex nonce", "zz" + parts[0][2:] + ":" + parts[1] + ":" + parts[2]},
		{"not hex tag", parts[0] + ":zz" + parts[1][2:] + ":" + parts[2]},
		{"not hex ciphertext", parts[0] + ":" + parts[1] + ":zz" + parts[2][2:]},
		{"tampered nonce", flipHexByte(parts[0]) + ":" + parts[1] + ":" + parts[2]},
		{"tampered tag", parts[0] + ":" + flipHexByte(parts[1]) + ":" + parts[2]},
		{"tampered ciphertext", parts[0] + ":" + parts[1] + ":" + flipHexByte(parts[2])},
		{"truncated nonce", parts[0][:8] + ":" + parts[1] + ":" + parts[2]},
		{"truncated tag", parts[0] + ":" + parts[1][:8] + ":" + parts[2]},
		{"truncated ciphertext", parts[0] + ":" + parts[1] + ":" + parts[2][:2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := v.Decrypt(tt.blob)
			assert.ErrorIs(t, err, platform.ErrCredentialDecrypt)
			assert.True(t, creds.IsZero(), "no partial plaintext on failure")
		})
	}
}

func TestVault_DecryptWithWrongKey(t *testing.T) {
	v1, err := New(testKey(t))
	require.NoError(t, err)

	other := testKey(t)
	other[0] ^= 0xff
	v2, err := New(other)
	require.NoError(t, err)

	blob, err := v1.Encrypt(platform.Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)

	_, err = v2.Decrypt(blob)
	assert.ErrorIs(t, err, platform.ErrCredentialDecrypt)
}
