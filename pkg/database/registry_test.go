package database

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeOwner struct {
	calls *[]string
	name  string
	err   error
}

func (f fakeOwner) EnsureTable(context.Context) error {
	*f.calls = append(*f.calls, f.name)
	return f.err
}

func TestRegistryEnsureAllInOrder(t *testing.T) {
	var calls []string
	var r Registry
	r.Register("users", fakeOwner{calls: &calls, name: "users"})
	r.Register("bank_accounts", fakeOwner{calls: &calls, name: "bank_accounts"})

	if err := r.EnsureAll(context.Background()); err != nil {
		t.Fatalf("EnsureAll error: %v", err)
	}
	if want := []string{"users", "bank_accounts"}; !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	if !reflect.DeepEqual(r.Names(), calls) {
		t.Fatalf("Names() = %v", r.Names())
	}
}

func TestRegistryStopsOnFailure(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	var r Registry
	r.Register("users", fakeOwner{calls: &calls, name: "users", err: boom})
	r.Register("later", fakeOwner{calls: &calls, name: "later"})

	err := r.EnsureAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected to stop after first failure, calls=%v", calls)
	}
}

func TestQuoteLiteral(t *testing.T) {
	if got := quoteLiteral("Asia/Ho_Chi_Minh"); got != "'Asia/Ho_Chi_Minh'" {
		t.Fatalf("got %s", got)
	}
	if got := quoteLiteral("a'b"); got != "'a''b'" {
		t.Fatalf("got %s", got)
	}
}
