package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/drinkless/internal/content"
	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/identity"
	"github.com/and161185/drinkless/internal/kv"
	"github.com/and161185/drinkless/internal/profile"
)

func newWallet(t *testing.T) (*Wallet, *profile.State) {
	t.Helper()
	st := profile.New(kv.NewMemory(), nil, identity.Anonymous{}, profile.Options{Log: zaptest.NewLogger(t)})
	return New(st, content.Default(), zaptest.NewLogger(t)), st
}

func TestWallet_AddSpend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w, _ := newWallet(t)

	if bal, err := w.Add(ctx, 50); err != nil || bal != 50 {
		t.Fatalf("add: bal=%d err=%v", bal, err)
	}
	if _, err := w.Add(ctx, -1); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Fatalf("negative add: want ErrInvalidAmount, got %v", err)
	}
	ok, err := w.Spend(ctx, 60)
	if err != nil || ok {
		t.Fatalf("overspend: ok=%v err=%v", ok, err)
	}
	if bal, _ := w.Balance(ctx); bal != 50 {
		t.Fatalf("overspend must not change balance, got %d", bal)
	}
	ok, err = w.Spend(ctx, 50)
	if err != nil || !ok {
		t.Fatalf("spend all: ok=%v err=%v", ok, err)
	}
	if bal, _ := w.Balance(ctx); bal != 0 {
		t.Fatalf("balance: want 0, got %d", bal)
	}
	if ok, err := w.Spend(ctx, 0); err != nil || !ok {
		t.Fatalf("zero spend: ok=%v err=%v", ok, err)
	}
	if _, err := w.Spend(ctx, -5); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Fatalf("negative spend: want ErrInvalidAmount, got %v", err)
	}
}

func TestWallet_ConcurrentSpendsNeverGoNegative(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w, _ := newWallet(t)
	if _, err := w.Add(ctx, 100); err != nil {
		t.Fatalf("add: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		paid int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := w.Spend(ctx, 30)
			if err != nil {
				t.Errorf("spend: %v", err)
				return
			}
			if ok {
				mu.Lock()
				paid++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	bal, _ := w.Balance(ctx)
	if paid != 3 || bal != 10 {
		t.Fatalf("want 3 spends and balance 10, got %d spends balance %d", paid, bal)
	}
}

func TestWallet_BuyBadge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w, st := newWallet(t)

	if ok, err := w.BuyBadge(ctx, "first-step"); err != nil || ok {
		t.Fatalf("broke buyer: ok=%v err=%v", ok, err)
	}
	if _, err := w.Add(ctx, 120); err != nil {
		t.Fatalf("add: %v", err)
	}
	if ok, err := w.BuyBadge(ctx, "first-step"); err != nil || !ok {
		t.Fatalf("buy: ok=%v err=%v", ok, err)
	}
	p, _ := st.Fresh(ctx)
	if p.Coins != 70 || !p.HasBadge("first-step") {
		t.Fatalf("after buy: %+v", p)
	}
	// price and badge land in the same write
	if p.Ver != 2 {
		t.Fatalf("want 2 writes (add, buy), got ver %d", p.Ver)
	}
	if _, err := w.BuyBadge(ctx, "first-step"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("rebuy: want ErrAlreadyExists, got %v", err)
	}
	if _, err := w.BuyBadge(ctx, "unicorn"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown badge: want ErrNotFound, got %v", err)
	}
	if p, _ := st.Fresh(ctx); p.Coins != 70 {
		t.Fatalf("failed buys must not charge, balance %d", p.Coins)
	}
}
