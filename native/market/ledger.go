package market

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type itemHoldKey struct {
	Collection ethcommon.Address
	TokenID    uint64
}

// EscrowLedger is the single choke point for marketplace custody. Every
// movement of escrowed funds or items routes through it, and it tracks the
// totals it holds per payment token and per item so the invariant
// "escrow balance == sum of all records' claims" can be asserted at any
// quiescent point.
//
// The ledger holds no locks of its own: the surrounding transactional
// boundary serialises operations on a key, and operations on distinct keys
// never share a record.
type EscrowLedger struct {
	cfg       *Config
	heldFunds map[ethcommon.Address]*big.Int
	heldItems map[itemHoldKey]*big.Int
}

// NewEscrowLedger creates a ledger bound to the marketplace config, through
// which it resolves the currently registered collaborators.
func NewEscrowLedger(cfg *Config) *EscrowLedger {
	return &EscrowLedger{
		cfg:       cfg,
		heldFunds: make(map[ethcommon.Address]*big.Int),
		heldItems: make(map[itemHoldKey]*big.Int),
	}
}

func (l *EscrowLedger) registry() (*AddressRegistry, error) {
	if l == nil || l.cfg == nil {
		return nil, fmt.Errorf("market: escrow ledger not configured")
	}
	reg := l.cfg.Registry()
	if reg == nil {
		return nil, fmt.Errorf("market: address registry not configured")
	}
	return reg, nil
}

// HoldFunds pulls amount of token from payer into marketplace custody and
// records the claim.
func (l *EscrowLedger) HoldFunds(token, payer ethcommon.Address, amount *big.Int) error {
	reg, err := l.registry()
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: escrow amount must be positive", ErrInvalidAmount)
	}
	if reg.Bank == nil {
		return fmt.Errorf("market: currency bank not configured")
	}
	if err := reg.Bank.Pull(token, payer, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}
	l.heldFunds[token] = new(big.Int).Add(l.held(token), amount)
	return nil
}

// ReleaseFunds pays amount of token out of marketplace custody to recipient
// and settles the claim. Releasing more than is held is an escrow invariant
// violation and fails before any transfer.
func (l *EscrowLedger) ReleaseFunds(token, recipient ethcommon.Address, amount *big.Int) error {
	reg, err := l.registry()
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: escrow release must be non-negative", ErrInvalidAmount)
	}
	if amount.Sign() == 0 {
		return nil
	}
	held := l.held(token)
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("market: escrow underflow: release %s exceeds held %s", amount, held)
	}
	if reg.Bank == nil {
		return fmt.Errorf("market: currency bank not configured")
	}
	if err := reg.Bank.Push(token, recipient, amount); err != nil {
		return err
	}
	l.heldFunds[token] = new(big.Int).Sub(held, amount)
	return nil
}

// HoldItem moves qty of item from the holder into marketplace custody.
func (l *EscrowLedger) HoldItem(from ethcommon.Address, item Item, qty *big.Int) error {
	reg, err := l.registry()
	if err != nil {
		return err
	}
	if qty == nil || qty.Sign() <= 0 {
		return fmt.Errorf("%w: escrow quantity must be positive", ErrInvalidAmount)
	}
	if reg.Items == nil {
		return fmt.Errorf("market: item custody not configured")
	}
	if err := reg.Items.TransferIn(from, item, qty); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}
	key := itemHoldKey{Collection: item.Collection, TokenID: item.TokenID}
	l.heldItems[key] = new(big.Int).Add(l.heldItem(key), qty)
	return nil
}

// ReleaseItem moves qty of item out of marketplace custody to recipient.
func (l *EscrowLedger) ReleaseItem(to ethcommon.Address, item Item, qty *big.Int) error {
	reg, err := l.registry()
	if err != nil {
		return err
	}
	if qty == nil || qty.Sign() <= 0 {
		return fmt.Errorf("%w: escrow quantity must be positive", ErrInvalidAmount)
	}
	key := itemHoldKey{Collection: item.Collection, TokenID: item.TokenID}
	held := l.heldItem(key)
	if held.Cmp(qty) < 0 {
		return fmt.Errorf("market: escrow underflow: release %s of item exceeds held %s", qty, held)
	}
	if reg.Items == nil {
		return fmt.Errorf("market: item custody not configured")
	}
	if err := reg.Items.TransferOut(to, item, qty); err != nil {
		return err
	}
	l.heldItems[key] = new(big.Int).Sub(held, qty)
	return nil
}

// HeldFunds reports the total of token currently escrowed.
func (l *EscrowLedger) HeldFunds(token ethcommon.Address) *big.Int {
	return new(big.Int).Set(l.held(token))
}

// HeldItems reports the quantity of item currently escrowed.
func (l *EscrowLedger) HeldItems(item Item) *big.Int {
	return new(big.Int).Set(l.heldItem(itemHoldKey{Collection: item.Collection, TokenID: item.TokenID}))
}

func (l *EscrowLedger) held(token ethcommon.Address) *big.Int {
	if v, ok := l.heldFunds[token]; ok && v != nil {
		return v
	}
	return big.NewInt(0)
}

func (l *EscrowLedger) heldItem(key itemHoldKey) *big.Int {
	if v, ok := l.heldItems[key]; ok && v != nil {
		return v
	}
	return big.NewInt(0)
}
