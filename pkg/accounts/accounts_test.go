package accounts

import (
	"testing"

	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/statediff"
)

var (
	alice = types.MustPubkeyFromBase58("Vote111111111111111111111111111111111111111")
	bob   = types.MustPubkeyFromBase58("Stake11111111111111111111111111111111111111")
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	cfg := DefaultBadgerConfig("")
	cfg.InMemory = true
	s, err := OpenBadger(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stores runs a subtest against both implementations.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore()
		defer s.Close()
		fn(t, s)
	})
	t.Run("badger", func(t *testing.T) {
		fn(t, openTestStore(t))
	})
}

func TestSerializeRoundTrip(t *testing.T) {
	acc := &Account{
		Lamports:   12345,
		Data:       []byte{0xde, 0xad, 0xbe, 0xef},
		Owner:      alice,
		Executable: true,
	}

	got, err := DeserializeAccount(acc.Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.Lamports != acc.Lamports || got.Owner != acc.Owner || !got.Executable {
		t.Errorf("round trip = %+v", got)
	}
	if string(got.Data) != string(acc.Data) {
		t.Errorf("data = %x", got.Data)
	}
}

func TestDeserializeInvalid(t *testing.T) {
	if _, err := DeserializeAccount(make([]byte, 10)); err != ErrInvalidRecord {
		t.Errorf("short record: err = %v", err)
	}

	// Declared data length exceeds the record.
	acc := &Account{Lamports: 1, Data: []byte{1, 2, 3}, Owner: alice}
	buf := acc.Serialize()
	buf[8] = 0xff
	if _, err := DeserializeAccount(buf); err != ErrInvalidRecord {
		t.Errorf("oversized data length: err = %v", err)
	}
}

func TestStorePutGet(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		acc := &Account{Lamports: 100, Data: []byte{1, 2}, Owner: bob}
		if err := s.Put(alice, acc); err != nil {
			t.Fatalf("put: %v", err)
		}

		got, err := s.Get(alice)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Lamports != 100 || got.Owner != bob || len(got.Data) != 2 {
			t.Errorf("got = %+v", got)
		}

		if _, err := s.Get(bob); err != ErrAccountNotFound {
			t.Errorf("missing account: err = %v", err)
		}
	})
}

func TestStoreZeroAccountDeleted(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		if err := s.Put(alice, &Account{Lamports: 100, Owner: bob}); err != nil {
			t.Fatal(err)
		}
		if err := s.Put(alice, &Account{Owner: bob}); err != nil {
			t.Fatal(err)
		}

		if ok, _ := s.Has(alice); ok {
			t.Error("zero account survived")
		}
		if n, _ := s.Count(); n != 0 {
			t.Errorf("count = %d, want 0", n)
		}
	})
}

func TestStoreDeleteAndCount(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		s.Put(alice, &Account{Lamports: 1, Owner: bob})
		s.Put(bob, &Account{Lamports: 2, Owner: bob})

		if n, _ := s.Count(); n != 2 {
			t.Fatalf("count = %d, want 2", n)
		}
		if err := s.Delete(alice); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(alice); err != nil {
			t.Errorf("double delete: %v", err)
		}
		if n, _ := s.Count(); n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	})
}

func TestStoreClosed(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		s.Close()
		if _, err := s.Get(alice); err != ErrClosed {
			t.Errorf("get after close: err = %v", err)
		}
		if err := s.Put(alice, &Account{Lamports: 1}); err != ErrClosed {
			t.Errorf("put after close: err = %v", err)
		}
	})
}

func TestReadAccountCapture(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		s.Put(alice, &Account{Lamports: 500, Data: make([]byte, 8), Owner: bob})

		state, ok := s.ReadAccount(alice)
		if !ok {
			t.Fatal("existing account not found")
		}
		if state.Lamports != 500 || state.DataLen != 8 || state.Owner != bob {
			t.Errorf("state = %+v", state)
		}
		if _, ok := s.ReadAccount(bob); ok {
			t.Error("missing account reported as found")
		}

		// The store plugs straight into a pre-execution capture.
		pre := statediff.Capture([]types.Pubkey{alice, bob}, s)
		if pre[alice].Lamports != 500 {
			t.Errorf("captured alice = %+v", pre[alice])
		}
		if pre[bob].Owner != types.DefaultOwner {
			t.Errorf("captured bob = %+v", pre[bob])
		}
	})
}

func TestBadgerIterate(t *testing.T) {
	s := openTestStore(t)
	s.Put(alice, &Account{Lamports: 1, Owner: bob})
	s.Put(bob, &Account{Lamports: 2, Owner: bob})

	seen := make(map[types.Pubkey]uint64)
	err := s.Iterate(func(pubkey types.Pubkey, account *Account) error {
		seen[pubkey] = account.Lamports
		return nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(seen) != 2 || seen[alice] != 1 || seen[bob] != 2 {
		t.Errorf("seen = %v", seen)
	}
}

func TestBadgerApplyDiff(t *testing.T) {
	s := openTestStore(t)
	s.Put(alice, &Account{Lamports: 2_000_000_000, Owner: types.SystemProgramAddr})

	diff := map[types.Pubkey]statediff.Snapshot{
		alice: {LamportsBefore: 2_000_000_000, LamportsAfter: 999_995_000, Owner: types.SystemProgramAddr},
		bob:   {LamportsAfter: 1_000_000_000, Owner: types.SystemProgramAddr},
	}
	if err := s.ApplyDiff(diff); err != nil {
		t.Fatalf("apply diff: %v", err)
	}

	a, _ := s.Get(alice)
	if a.Lamports != 999_995_000 {
		t.Errorf("alice lamports = %d", a.Lamports)
	}
	b, _ := s.Get(bob)
	if b == nil || b.Lamports != 1_000_000_000 {
		t.Errorf("bob = %+v", b)
	}

	// Draining an account removes it.
	drain := map[types.Pubkey]statediff.Snapshot{
		bob: {LamportsBefore: 1_000_000_000, Owner: types.SystemProgramAddr},
	}
	if err := s.ApplyDiff(drain); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Has(bob); ok {
		t.Error("drained account survived")
	}
}

func TestBadgerCountPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultBadgerConfig(dir)

	s, err := OpenBadger(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Put(alice, &Account{Lamports: 1, Owner: bob})
	s.Put(bob, &Account{Lamports: 2, Owner: bob})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenBadger(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if n, _ := s.Count(); n != 2 {
		t.Errorf("count after reload = %d, want 2", n)
	}
}
