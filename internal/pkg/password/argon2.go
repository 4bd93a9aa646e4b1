// Package password hashes and verifies credentials with argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTime        uint32 = 1
	minParallelism uint8  = 1
	saltLength            = 16
	keyLength             = 32
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// Config holds the argon2id cost parameters. Zero values fall back to
// DefaultConfig.
type Config struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
}

// DefaultConfig returns OWASP-recommended argon2id parameters.
func DefaultConfig() Config {
	return Config{MemoryKB: 64 * 1024, Time: 1, Parallelism: 4}
}

// Argon2 produces PHC-encoded argon2id hashes:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
type Argon2 struct {
	config Config
}

func NewArgon2(cfg Config) (*Argon2, error) {
	def := DefaultConfig()
	if cfg.MemoryKB == 0 {
		cfg.MemoryKB = def.MemoryKB
	}
	if cfg.Time == 0 {
		cfg.Time = def.Time
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = def.Parallelism
	}
	if cfg.MemoryKB < minMemoryKB {
		return nil, fmt.Errorf("argon2 memory must be >= %d KB", minMemoryKB)
	}
	if cfg.Time < minTime || cfg.Parallelism < minParallelism {
		return nil, errors.New("argon2 time and parallelism must be >= 1")
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a freshly salted hash; hashing the same password twice never
// yields the same string.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.MemoryKB, a.config.Parallelism, keyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.MemoryKB,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash with the parameters and salt embedded in
// encoded. A malformed encoding is a verification failure, not an error.
func (a *Argon2) Verify(password, encoded string) bool {
	p, err := parsePHC(encoded)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.hash)))
	return subtle.ConstantTimeCompare(computed, p.hash) == 1
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the hasher is configured with.
func (a *Argon2) NeedsUpgrade(encoded string) bool {
	p, err := parsePHC(encoded)
	if err != nil {
		return true
	}
	return p.memory < a.config.MemoryKB || p.time < a.config.Time || p.parallelism < a.config.Parallelism
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var out phc
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errors.New("invalid parameter entry")
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s parameter", k)
		}
		switch k {
		case "m":
			out.memory = uint32(n)
		case "t":
			out.time = uint32(n)
		case "p":
			if n > 255 {
				return nil, errors.New("invalid p parameter")
			}
			out.parallelism = uint8(n)
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if out.memory < minMemoryKB || out.time < minTime || out.parallelism < minParallelism {
		return nil, errors.New("missing or too weak parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, errors.New("invalid salt encoding")
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, errors.New("invalid hash encoding")
	}
	out.salt = salt
	out.hash = hash
	return &out, nil
}
