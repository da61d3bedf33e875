// Package wallet manages the coin balance and the badge shop.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/and161185/drinkless/internal/content"
	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/model"
)

// Profile is the subset of profile.State the wallet needs.
type Profile interface {
	Fresh(ctx context.Context) (model.Profile, error)
	Update(ctx context.Context, fn func(model.Profile) (model.ProfilePatch, error)) (model.Profile, error)
}

// Wallet adds and spends coins through the profile's single write path.
type Wallet struct {
	profile Profile
	catalog *content.Catalog
	log     *zap.Logger
}

// New constructs a Wallet. A nil catalog means content.Default().
func New(p Profile, catalog *content.Catalog, log *zap.Logger) *Wallet {
	if catalog == nil {
		catalog = content.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Wallet{profile: p, catalog: catalog, log: log}
}

// Balance returns the current coin balance from a fresh read.
func (w *Wallet) Balance(ctx context.Context) (int, error) {
	p, err := w.profile.Fresh(ctx)
	if err != nil {
		return 0, err
	}
	return p.Coins, nil
}

// Add credits amount coins and returns the new balance.
func (w *Wallet) Add(ctx context.Context, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: add %d", errs.ErrInvalidAmount, amount)
	}
	p, err := w.profile.Update(ctx, func(cur model.Profile) (model.ProfilePatch, error) {
		if amount == 0 {
			return model.ProfilePatch{}, nil
		}
		return model.ProfilePatch{Coins: model.Int(cur.Coins + amount)}, nil
	})
	if err != nil {
		return 0, fmt.Errorf("add coins: %w", err)
	}
	w.log.Debug("coins added", zap.Int("amount", amount), zap.Int("balance", p.Coins))
	return p.Coins, nil
}

// Spend debits amount coins. It reports false, with nothing written, when
// the balance is too small.
func (w *Wallet) Spend(ctx context.Context, amount int) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("%w: spend %d", errs.ErrInvalidAmount, amount)
	}
	_, err := w.profile.Update(ctx, func(cur model.Profile) (model.ProfilePatch, error) {
		if cur.Coins < amount {
			return model.ProfilePatch{}, errs.ErrInsufficientCoins
		}
		if amount == 0 {
			return model.ProfilePatch{}, nil
		}
		return model.ProfilePatch{Coins: model.Int(cur.Coins - amount)}, nil
	})
	switch {
	case errors.Is(err, errs.ErrInsufficientCoins):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("spend coins: %w", err)
	}
	return true, nil
}

// BuyBadge spends the catalog price of a badge and adds it to the profile
// in one write. It reports false when the balance is too small.
func (w *Wallet) BuyBadge(ctx context.Context, badgeID string) (bool, error) {
	b, ok := w.catalog.Badge(badgeID)
	if !ok {
		return false, fmt.Errorf("badge %q: %w", badgeID, errs.ErrNotFound)
	}
	_, err := w.profile.Update(ctx, func(cur model.Profile) (model.ProfilePatch, error) {
		if cur.HasBadge(b.ID) {
			return model.ProfilePatch{}, fmt.Errorf("badge %q: %w", b.ID, errs.ErrAlreadyExists)
		}
		if cur.Coins < b.Price {
			return model.ProfilePatch{}, errs.ErrInsufficientCoins
		}
		return model.ProfilePatch{
			Coins:  model.Int(cur.Coins - b.Price),
			Badges: append(slices.Clone(cur.Badges), b.ID),
		}, nil
	})
	switch {
	case errors.Is(err, errs.ErrInsufficientCoins):
		return false, nil
	case err != nil:
		return false, err
	}
	w.log.Info("badge bought", zap.String("badge", b.ID), zap.Int("price", b.Price))
	return true, nil
}
