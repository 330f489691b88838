package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"lostfound-bot/internal/models"
)

const (
	algo     = "aes-256-gcm"
	ivLength = 12
	keySize  = 32
)

// Vault encrypts and decrypts verification secrets. With no key configured
// it degrades to storing plaintext envelopes, loudly.
type Vault struct {
	key []byte
}

// New builds a Vault from the SECRETS_KEY value. Accepted forms: 64-char
// hex, base64 of 32 bytes, or a raw 32-byte ASCII string. Anything else
// disables encryption.
func New(source string) *Vault {
	key := resolveKey(source)
	if key == nil {
		log.Println("vault: SECRETS_KEY not set or invalid, secrets will be stored unencrypted")
	}
	return &Vault{key: key}
}

func resolveKey(source string) []byte {
	// Keys injected from files tend to carry a trailing newline.
	source = strings.TrimSpace(source)
	if source == "" {
		return nil
	}

	if decoded, err := hex.DecodeString(source); err == nil && len(decoded) == keySize {
		return decoded
	}
	if len(source) == keySize {
		return []byte(source)
	}
	if decoded, err := base64.StdEncoding.DecodeString(source); err == nil && len(decoded) == keySize {
		return decoded
	}
	return nil
}

// Enabled reports whether real encryption is in effect.
func (v *Vault) Enabled() bool {
	return v.key != nil
}

type envelope struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	IV    string `json:"iv,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Data  string `json:"data,omitempty"`
}

// pairEnvelope is what lands in the secrets table: plaintext question plus
// an encrypted answer.
type pairEnvelope struct {
	Question string   `json:"question"`
	Cipher   envelope `json:"cipher"`
}

// Encrypt seals a value into a JSON envelope string.
func (v *Vault) Encrypt(value string) (string, error) {
	env, err := v.seal(value)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncryptPair seals a question/answer pair. Only the answer is encrypted,
// the question must stay readable to ask it.
func (v *Vault) EncryptPair(pair models.SecretPair) (string, error) {
	env, err := v.seal(pair.Answer)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(pairEnvelope{Question: pair.Question, Cipher: env})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (v *Vault) seal(value string) (envelope, error) {
	if v.key == nil {
		return envelope{Type: "plain", Value: value}, nil
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return envelope{}, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return envelope{}, fmt.Errorf("init gcm: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return envelope{}, fmt.Errorf("generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(value), nil)
	data, tag := sealed[:len(sealed)-gcm.Overhead()], sealed[len(sealed)-gcm.Overhead():]

	return envelope{
		Type: algo,
		IV:   base64.StdEncoding.EncodeToString(iv),
		Tag:  base64.StdEncoding.EncodeToString(tag),
		Data: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Decrypt opens an envelope string. Failure of any kind yields "" so a
// corrupt secret can never leak or crash a flow.
func (v *Vault) Decrypt(raw string) string {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		log.Printf("vault: malformed envelope: %v", err)
		return ""
	}
	return v.open(env)
}

// DecryptPair opens a stored question/answer envelope.
func (v *Vault) DecryptPair(raw string) models.SecretPair {
	var pair pairEnvelope
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		log.Printf("vault: malformed secret envelope: %v", err)
		return models.SecretPair{}
	}
	return models.SecretPair{Question: pair.Question, Answer: v.open(pair.Cipher)}
}

func (v *Vault) open(env envelope) string {
	if v.key == nil || env.Type == "plain" {
		return env.Value
	}
	if env.Type != algo {
		return ""
	}

	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		log.Printf("vault: decrypt failed: %v", err)
		return ""
	}
	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil {
		log.Printf("vault: decrypt failed: %v", err)
		return ""
	}
	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		log.Printf("vault: decrypt failed: %v", err)
		return ""
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		log.Printf("vault: decrypt failed: %v", err)
		return ""
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		log.Printf("vault: decrypt failed: %v", err)
		return ""
	}
	if len(iv) != gcm.NonceSize() {
		log.Printf("vault: decrypt failed: bad iv length %d", len(iv))
		return ""
	}

	plain, err := gcm.Open(nil, iv, append(data, tag...), nil)
	if err != nil {
		log.Printf("vault: decrypt failed: %v", err)
		return ""
	}
	return string(plain)
}
