package vault

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound-bot/internal/models"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := New(testKeyHex)
	require.True(t, v.Enabled())

	raw, err := v.Encrypt("кличка Барсик")
	require.NoError(t, err)
	assert.NotContains(t, raw, "Барсик")

	var env map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, "aes-256-gcm", env["type"])
	assert.NotEmpty(t, env["iv"])
	assert.NotEmpty(t, env["tag"])

	assert.Equal(t, "кличка Барсик", v.Decrypt(raw))
}

func TestKeyFormats(t *testing.T) {
	assert.True(t, New(testKeyHex).Enabled())
	assert.True(t, New("0123456789abcdef0123456789abcdef").Enabled())
	assert.True(t, New("AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8=").Enabled())

	assert.False(t, New("").Enabled())
	assert.False(t, New("short").Enabled())
	assert.False(t, New(strings.Repeat("z", 31)).Enabled())
}

func TestKeyIsTrimmed(t *testing.T) {
	assert.True(t, New(testKeyHex+"\n").Enabled())
	assert.True(t, New("  "+testKeyHex+"  ").Enabled())
	assert.False(t, New("   ").Enabled())
}

func TestPlaintextModeWithoutKey(t *testing.T) {
	v := New("")

	raw, err := v.Encrypt("answer")
	require.NoError(t, err)
	assert.Contains(t, raw, `"type":"plain"`)
	assert.Equal(t, "answer", v.Decrypt(raw))
}

func TestDecryptFailsClosed(t *testing.T) {
	v := New(testKeyHex)

	assert.Equal(t, "", v.Decrypt("not json"))
	assert.Equal(t, "", v.Decrypt(`{"type":"rot13","data":"x"}`))
	assert.Equal(t, "", v.Decrypt(`{"type":"aes-256-gcm","iv":"!!!","tag":"","data":""}`))

	// valid envelope tampered with
	raw, err := v.Encrypt("secret")
	require.NoError(t, err)
	tampered := strings.Replace(raw, `"data":"`, `"data":"AAAA`, 1)
	assert.Equal(t, "", v.Decrypt(tampered))

	// envelope from a different key
	other := New("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	foreign, err := other.Encrypt("secret")
	require.NoError(t, err)
	assert.Equal(t, "", v.Decrypt(foreign))
}

func TestPairRoundTrip(t *testing.T) {
	v := New(testKeyHex)

	raw, err := v.EncryptPair(models.SecretPair{Question: "Какой окрас?", Answer: "рыжий"})
	require.NoError(t, err)
	assert.Contains(t, raw, "Какой окрас?")
	assert.NotContains(t, raw, "рыжий")

	pair := v.DecryptPair(raw)
	assert.Equal(t, "Какой окрас?", pair.Question)
	assert.Equal(t, "рыжий", pair.Answer)
}
