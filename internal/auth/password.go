package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	// HasherBcrypt selects bcrypt for new hashes.
	HasherBcrypt = "bcrypt"
	// HasherArgon2id selects argon2id for new hashes.
	HasherArgon2id = "argon2id"

	argon2Prefix = "$argon2id$"
)

// PasswordHasher hashes passwords one way and verifies them in constant time.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Verify(raw, hash string) bool
}

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params keeps a verify in the low hundreds of milliseconds on server hardware.
var DefaultArgon2Params = Argon2Params{Time: 3, Memory: 64 * 1024, Threads: 2, SaltLen: 16, KeyLen: 32}

// Hasher produces hashes with the configured algorithm and verifies hashes of
// either supported format, so switching algorithms keeps existing passwords valid.
type Hasher struct {
	algorithm  string
	bcryptCost int
	argon      Argon2Params
}

var _ PasswordHasher = (*Hasher)(nil)

// NewPasswordHasher builds a hasher for algorithm ("bcrypt" or "argon2id").
func NewPasswordHasher(algorithm string, bcryptCost int) (*Hasher, error) {
	switch algorithm {
	case "", HasherBcrypt:
		algorithm = HasherBcrypt
	case HasherArgon2id:
	default:
		return nil, fmt.Errorf("unknown password hasher %q", algorithm)
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{algorithm: algorithm, bcryptCost: bcryptCost, argon: DefaultArgon2Params}, nil
}

// WithArgon2Params overrides the argon2id parameters.
func (h *Hasher) WithArgon2Params(p Argon2Params) *Hasher {
	h.argon = p
	return h
}

// Hash returns the encoded hash of raw. The byte copy of raw is cleared afterwards.
func (h *Hasher) Hash(raw string) (string, error) {
	secret := []byte(raw)
	defer clear(secret)

	if h.algorithm == HasherArgon2id {
		return h.hashArgon2(secret)
	}
	input := bcryptInput(secret)
	defer clear(input)

	hash, err := bcrypt.GenerateFromPassword(input, h.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether raw matches hash.
func (h *Hasher) Verify(raw, hash string) bool {
	secret := []byte(raw)
	defer clear(secret)

	if strings.HasPrefix(hash, argon2Prefix) {
		return verifyArgon2(secret, hash)
	}
	input := bcryptInput(secret)
	defer clear(input)
	return bcrypt.CompareHashAndPassword([]byte(hash), input) == nil
}

// bcryptInput condenses secret to the base64 SHA-256 digest so passwords of
// any length fit under bcrypt's 72-byte input limit.
func bcryptInput(secret []byte) []byte {
	sum := sha256.Sum256(secret)
	input := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(input, sum[:])
	return input
}

func (h *Hasher) hashArgon2(secret []byte) (string, error) {
	salt := make([]byte, h.argon.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey(secret, salt, h.argon.Time, h.argon.Memory, h.argon.Threads, h.argon.KeyLen)

	// $argon2id$v=19$m=65536,t=3,p=2$SALT$KEY
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.argon.Memory, h.argon.Time, h.argon.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func verifyArgon2(secret []byte, encoded string) bool {
	sections := strings.Split(encoded, "$")
	// ["", "argon2id", "v=19", "m=...,t=...,p=...", salt, key]
	if len(sections) != 6 {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(sections[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(sections[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(sections[5])
	if err != nil {
		return false
	}

	got := argon2.IDKey(secret, salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
