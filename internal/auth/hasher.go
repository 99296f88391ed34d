package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(pw, hash string) bool
	NeedsRehash(hash string) bool
}

// HasherConfig holds argon2id cost parameters.
type HasherConfig struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHasherConfig is 64 MiB, 3 passes, 2 lanes.
var DefaultHasherConfig = HasherConfig{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Argon2Hasher hashes with argon2id and still verifies legacy bcrypt hashes
// so old rows keep working until they are rehashed on the next login.
type Argon2Hasher struct {
	cfg HasherConfig
}

func NewArgon2Hasher(cfg HasherConfig) (*Argon2Hasher, error) {
	if cfg.SaltLength == 0 {
		cfg.SaltLength = DefaultHasherConfig.SaltLength
	}
	if cfg.KeyLength == 0 {
		cfg.KeyLength = DefaultHasherConfig.KeyLength
	}
	if cfg.Memory < 8*1024 {
		return nil, errors.New("argon2 memory must be >= 8192 KiB")
	}
	if cfg.Time < 1 || cfg.Parallelism < 1 {
		return nil, errors.New("argon2 time and parallelism must be >= 1")
	}
	return &Argon2Hasher{cfg: cfg}, nil
}

func (a *Argon2Hasher) Hash(pw string) (string, error) {
	salt := make([]byte, a.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(pw), salt, a.cfg.Time, a.cfg.Memory, a.cfg.Parallelism, a.cfg.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.cfg.Memory, a.cfg.Time, a.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// maxCostFactor bounds stored argon2 parameters relative to the configured
// ones; anything above is treated as malformed.
const maxCostFactor = 4

// maxKeyLength bounds the stored salt and key sizes in bytes.
const maxKeyLength = 1024

// Verify reports whether pw matches hash. Malformed hashes never match.
func (a *Argon2Hasher) Verify(pw, hash string) bool {
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
	}
	p, err := a.decode(hash)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(pw), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1
}

// NeedsRehash is true for bcrypt hashes and for argon2id hashes with weaker parameters.
func (a *Argon2Hasher) NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	p, err := a.decode(hash)
	if err != nil {
		return true
	}
	return p.memory < a.cfg.Memory || p.time < a.cfg.Time || p.parallelism < a.cfg.Parallelism ||
		uint32(len(p.key)) != a.cfg.KeyLength
}

// decode parses hash and rejects costs far above the configured ones so a
// corrupted row cannot make Verify allocate without bound.
func (a *Argon2Hasher) decode(hash string) (*argon2Params, error) {
	p, err := decodeArgon2(hash)
	if err != nil {
		return nil, err
	}
	if uint64(p.memory) > maxCostFactor*uint64(a.cfg.Memory) ||
		uint64(p.time) > maxCostFactor*uint64(a.cfg.Time) ||
		int(p.parallelism) > maxCostFactor*int(a.cfg.Parallelism) {
		return nil, errors.New("argon2 parameters out of range")
	}
	if len(p.salt) > maxKeyLength || len(p.key) > maxKeyLength {
		return nil, errors.New("argon2 salt or key too long")
	}
	return p, nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

type argon2Params struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// format: $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
func decodeArgon2(hash string) (*argon2Params, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, errors.New("invalid argon2id hash")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}
	var p argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil {
		return nil, errors.New("invalid argon2 parameters")
	}
	if p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return nil, errors.New("invalid argon2 parameters")
	}
	var err error
	// accept padded base64 from other encoders too
	if p.salt, err = decodeB64(parts[4]); err != nil || len(p.salt) == 0 {
		return nil, errors.New("invalid salt encoding")
	}
	if p.key, err = decodeB64(parts[5]); err != nil || len(p.key) == 0 {
		return nil, errors.New("invalid key encoding")
	}
	return &p, nil
}

func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
