package market

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"nftmarket/core/events"
	nativecommon "nftmarket/native/common"
)

// ListingEngine runs fixed-price sales. The listed quantity is escrowed at
// creation; divisible items sell in whole units of the listing's unit size
// and the listing disappears once the last unit is bought.
type ListingEngine struct {
	engine
	state listingState
}

// NewListingEngine constructs a listing engine over the supplied state,
// shared marketplace config and escrow ledger.
func NewListingEngine(state listingState, cfg *Config, ledger *EscrowLedger, tuning Tuning) *ListingEngine {
	return &ListingEngine{engine: newEngine(cfg, ledger, tuning), state: state}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *ListingEngine) SetEmitter(emitter events.Emitter) { e.setEmitter(emitter) }

// SetNowFunc overrides the time source, primarily used in tests.
func (e *ListingEngine) SetNowFunc(now func() int64) { e.setNowFunc(now) }

// SetPauses configures the pause view gating every mutating operation.
func (e *ListingEngine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// GetListing returns a copy of the listing at key, if one exists.
func (e *ListingEngine) GetListing(key ListingKey) (*Listing, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	l, ok := e.state.ListingGet(key)
	if !ok || !l.Exists() {
		return nil, false
	}
	return l.Clone(), true
}

// CreateListing escrows the items and opens a fixed-price sale starting at
// startTime, which may be now or in the future but never in the past. For
// divisible items qty must be a positive exact multiple of unitSize; unitPrice
// is the price of one unit of unitSize tokens.
func (e *ListingEngine) CreateListing(caller ethcommon.Address, item Item, qty, unitSize *big.Int, payToken ethcommon.Address, unitPrice *big.Int, startTime int64) (ListingKey, *Listing, error) {
	if e == nil || e.state == nil {
		return ListingKey{}, nil, fmt.Errorf("market: listing engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleListing); err != nil {
		return ListingKey{}, nil, err
	}
	reg, err := e.registry()
	if err != nil {
		return ListingKey{}, nil, err
	}
	amount, err := normalizeQuantity(item, qty)
	if err != nil {
		return ListingKey{}, nil, err
	}
	unit := big.NewInt(1)
	if item.Kind == KindDivisible {
		if unitSize == nil || unitSize.Sign() <= 0 {
			return ListingKey{}, nil, fmt.Errorf("%w: unit size must be positive", ErrInvalidAmount)
		}
		if new(big.Int).Mod(amount, unitSize).Sign() != 0 {
			return ListingKey{}, nil, fmt.Errorf("%w: invalid amount", ErrInvalidAmount)
		}
		unit = new(big.Int).Set(unitSize)
	} else if unitSize != nil && unitSize.Cmp(unit) != 0 {
		return ListingKey{}, nil, fmt.Errorf("%w: unique items trade in single units", ErrInvalidAmount)
	}
	// Existence is checked before custody so re-listing an item that is
	// already in escrow reports the duplicate, not the missing balance.
	key := ListingKey{Collection: item.Collection, TokenID: item.TokenID, Owner: caller}
	if item.Kind == KindDivisible {
		id, err := e.state.NextMarketID()
		if err != nil {
			return ListingKey{}, nil, err
		}
		key.ListingID = id
	}
	if existing, ok := e.state.ListingGet(key); ok && existing.Exists() {
		return ListingKey{}, nil, fmt.Errorf("%w: item is already listed", ErrAlreadyExists)
	}
	if err := e.checkItem(reg, caller, item, amount); err != nil {
		return ListingKey{}, nil, err
	}
	if err := e.checkPayToken(reg, payToken); err != nil {
		return ListingKey{}, nil, err
	}
	if unitPrice == nil || unitPrice.Sign() < 0 {
		return ListingKey{}, nil, fmt.Errorf("%w: unit price must be non-negative", ErrInvalidAmount)
	}
	if startTime < e.now() {
		return ListingKey{}, nil, fmt.Errorf("%w: invalid start time", ErrInvalidTimeWindow)
	}
	if err := e.ledger.HoldItem(caller, item, amount); err != nil {
		return ListingKey{}, nil, err
	}
	listing := &Listing{
		Owner:           caller,
		PayToken:        payToken,
		UnitPrice:       new(big.Int).Set(unitPrice),
		StartTime:       startTime,
		TokenAmount:     amount,
		UnitSize:        unit,
		RemainingAmount: new(big.Int).Set(amount),
	}
	if err := e.state.ListingPut(key, listing); err != nil {
		return ListingKey{}, nil, err
	}
	e.emit(NewListingCreatedEvent(key, item, listing))
	return key, listing.Clone(), nil
}

// UpdateListing changes the payment token and unit price of the caller's
// listing. Quantity and timing are immutable.
func (e *ListingEngine) UpdateListing(caller ethcommon.Address, item Item, listingID uint64, payToken ethcommon.Address, unitPrice *big.Int) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: listing engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleListing); err != nil {
		return err
	}
	reg, err := e.registry()
	if err != nil {
		return err
	}
	key := ListingKey{Collection: item.Collection, TokenID: item.TokenID, Owner: caller, ListingID: listingID}
	listing, ok := e.state.ListingGet(key)
	if !ok || !listing.Exists() {
		return fmt.Errorf("%w: item is not listed", ErrNotFound)
	}
	if err := e.checkPayToken(reg, payToken); err != nil {
		return err
	}
	if unitPrice == nil || unitPrice.Sign() < 0 {
		return fmt.Errorf("%w: unit price must be non-negative", ErrInvalidAmount)
	}
	listing.PayToken = payToken
	listing.UnitPrice = new(big.Int).Set(unitPrice)
	if err := e.state.ListingPut(key, listing); err != nil {
		return err
	}
	e.emit(NewListingUpdatedEvent(key, item, listing))
	return nil
}

// CancelListing returns the remaining escrowed quantity to the owner and
// deletes the listing.
func (e *ListingEngine) CancelListing(caller ethcommon.Address, item Item, listingID uint64) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: listing engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleListing); err != nil {
		return err
	}
	key := ListingKey{Collection: item.Collection, TokenID: item.TokenID, Owner: caller, ListingID: listingID}
	listing, ok := e.state.ListingGet(key)
	if !ok || !listing.Exists() {
		return fmt.Errorf("%w: item is not listed", ErrNotFound)
	}
	if err := e.ledger.ReleaseItem(listing.Owner, item, listing.RemainingAmount); err != nil {
		return err
	}
	if err := e.state.ListingDelete(key); err != nil {
		return err
	}
	e.emit(NewListingCancelledEvent(key, item, listing))
	return nil
}

// BuyListedItem sells units of the listing to the caller at the stored unit
// price. The buyer states the unit price and payment token they expect so a
// concurrent UpdateListing cannot silently change the deal. The price is
// pulled from the buyer, split between fee recipient, royalty recipient and
// seller, and the bought quantity leaves escrow; the listing is deleted when
// nothing remains.
func (e *ListingEngine) BuyListedItem(caller ethcommon.Address, item Item, owner ethcommon.Address, listingID uint64, expectedUnitPrice *big.Int, payToken ethcommon.Address, units uint64) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: listing engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleListing); err != nil {
		return err
	}
	reg, err := e.registry()
	if err != nil {
		return err
	}
	key := ListingKey{Collection: item.Collection, TokenID: item.TokenID, Owner: owner, ListingID: listingID}
	listing, ok := e.state.ListingGet(key)
	if !ok || !listing.Exists() {
		return fmt.Errorf("%w: item is not listed", ErrNotFound)
	}
	if e.now() < listing.StartTime {
		return fmt.Errorf("%w: listing has not started yet", ErrInvalidTimeWindow)
	}
	if payToken != listing.PayToken {
		return fmt.Errorf("%w: listing settles in %s", ErrCurrencyMismatch, listing.PayToken.Hex())
	}
	if expectedUnitPrice == nil || expectedUnitPrice.Cmp(listing.UnitPrice) != 0 {
		return fmt.Errorf("%w: unit price changed", ErrInvalidAmount)
	}
	if units == 0 {
		return fmt.Errorf("%w: invalid amount", ErrInvalidAmount)
	}
	if item.Kind == KindUnique && units != 1 {
		return fmt.Errorf("%w: unique items trade in single units", ErrInvalidAmount)
	}
	unitCount := new(big.Int).SetUint64(units)
	quantity := new(big.Int).Mul(unitCount, listing.UnitSize)
	if quantity.Cmp(listing.RemainingAmount) > 0 {
		return fmt.Errorf("%w: invalid amount", ErrInvalidAmount)
	}
	price := new(big.Int).Mul(unitCount, listing.UnitPrice)
	if price.Sign() <= 0 {
		return fmt.Errorf("%w: sale amount must be positive", ErrInvalidAmount)
	}
	split, err := e.splitProceeds(reg, item, price, price, e.cfg.ListingFee(), true)
	if err != nil {
		return err
	}
	if err := e.ledger.HoldFunds(listing.PayToken, caller, price); err != nil {
		return err
	}
	if err := e.payOut(listing.PayToken, listing.Owner, split); err != nil {
		return err
	}
	if err := e.ledger.ReleaseItem(caller, item, quantity); err != nil {
		return err
	}
	listing.RemainingAmount = new(big.Int).Sub(listing.RemainingAmount, quantity)
	if listing.RemainingAmount.Sign() == 0 {
		if err := e.state.ListingDelete(key); err != nil {
			return err
		}
	} else {
		if err := e.state.ListingPut(key, listing); err != nil {
			return err
		}
	}
	e.emit(NewListingPurchasedEvent(key, item, listing, caller, quantity, split))
	return nil
}
