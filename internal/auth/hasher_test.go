package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)
	for _, pw := range []string{"correct horse", "p@ssw0rd", "", "mật khẩu"} {
		hash, err := h.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q): %v", pw, err)
		}
		if !h.Verify(pw, hash) {
			t.Errorf("Verify(%q) = false", pw)
		}
		if h.Verify(pw+"x", hash) {
			t.Errorf("Verify accepted a different password for %q", pw)
		}
	}
}

func TestHashIsSalted(t *testing.T) {
	h := newTestHasher(t)
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
	if !strings.HasPrefix(a, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", a)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t)
	for _, bad := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=8192,t=1,p=1$",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5",
		"$2b$10$short",
	} {
		if h.Verify("pw", bad) {
			t.Errorf("Verify accepted malformed hash %q", bad)
		}
	}
}

func TestVerifyRejectsOversizedCosts(t *testing.T) {
	h := newTestHasher(t)
	for _, bad := range []string{
		"$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=100000,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=255$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5",
	} {
		if h.Verify("pw", bad) {
			t.Errorf("Verify accepted %q", bad)
		}
		if !h.NeedsRehash(bad) {
			t.Errorf("NeedsRehash(%q) = false", bad)
		}
	}

	// stronger hashes within the bound still verify
	stronger, err := NewArgon2Hasher(HasherConfig{Memory: 16 * 1024, Time: 2, Parallelism: 2})
	if err != nil {
		t.Fatal(err)
	}
	hash, err := stronger.Hash("pw")
	if err != nil {
		t.Fatal(err)
	}
	if !h.Verify("pw", hash) {
		t.Fatal("hash within the cost bound must verify")
	}
}

func TestLegacyBcrypt(t *testing.T) {
	h := newTestHasher(t)
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !h.Verify("old-password", string(legacy)) {
		t.Fatal("bcrypt hash must still verify")
	}
	if h.Verify("other", string(legacy)) {
		t.Fatal("bcrypt mismatch accepted")
	}
	if !h.NeedsRehash(string(legacy)) {
		t.Fatal("bcrypt hashes need a rehash")
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newTestHasher(t)
	weakHash, _ := weak.Hash("pw")
	if weak.NeedsRehash(weakHash) {
		t.Fatal("hash with current parameters must not need a rehash")
	}

	strong, err := NewArgon2Hasher(HasherConfig{Memory: 16 * 1024, Time: 2, Parallelism: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !strong.NeedsRehash(weakHash) {
		t.Fatal("weaker parameters must need a rehash")
	}
	if !strong.Verify("pw", weakHash) {
		t.Fatal("hashes keep their own parameters when verified")
	}
}

func TestNewArgon2HasherValidates(t *testing.T) {
	cases := []HasherConfig{
		{Memory: 1024, Time: 1, Parallelism: 1},
		{Memory: 8 * 1024, Time: 0, Parallelism: 1},
		{Memory: 8 * 1024, Time: 1, Parallelism: 0},
	}
	for _, c := range cases {
		if _, err := NewArgon2Hasher(c); err == nil {
			t.Errorf("expected error for %+v", c)
		}
	}
}
