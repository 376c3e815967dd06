package market

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"nftmarket/core/events"
	nativecommon "nftmarket/native/common"
)

// OfferEngine manages standing offers on items the offeror does not own.
// Depending on the marketplace escrow toggle at creation time, the offered
// price is either held in escrow immediately or pulled from the offeror when
// the owner accepts. Each offer keeps the snapshot of that choice for its
// whole life.
type OfferEngine struct {
	engine
	state offerState
}

// NewOfferEngine constructs an offer engine over the supplied state, shared
// marketplace config and escrow ledger.
func NewOfferEngine(state offerState, cfg *Config, ledger *EscrowLedger, tuning Tuning) *OfferEngine {
	return &OfferEngine{engine: newEngine(cfg, ledger, tuning), state: state}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *OfferEngine) SetEmitter(emitter events.Emitter) { e.setEmitter(emitter) }

// SetNowFunc overrides the time source, primarily used in tests.
func (e *OfferEngine) SetNowFunc(now func() int64) { e.setNowFunc(now) }

// SetPauses configures the pause view gating every mutating operation.
func (e *OfferEngine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// GetOffer returns a copy of the offer at key, if one exists.
func (e *OfferEngine) GetOffer(key OfferKey) (*Offer, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	o, ok := e.state.OfferGet(key)
	if !ok || !o.Exists() {
		return nil, false
	}
	return o.Clone(), true
}

// CreateOffer registers a standing offer on an item. One live offer per
// (item, offeror) pair; the expiration must be in the future. When the
// marketplace currently escrows offer payments, the price is pulled from the
// caller now and the offer records that snapshot.
func (e *OfferEngine) CreateOffer(caller ethcommon.Address, item Item, qty *big.Int, payToken ethcommon.Address, price *big.Int, expirationTime int64) (OfferKey, *Offer, error) {
	if e == nil || e.state == nil {
		return OfferKey{}, nil, fmt.Errorf("market: offer engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleOffer); err != nil {
		return OfferKey{}, nil, err
	}
	reg, err := e.registry()
	if err != nil {
		return OfferKey{}, nil, err
	}
	amount, err := normalizeQuantity(item, qty)
	if err != nil {
		return OfferKey{}, nil, err
	}
	if reg.Items == nil {
		return OfferKey{}, nil, fmt.Errorf("market: item custody not configured")
	}
	kind, err := reg.Items.Kind(item.Collection)
	if err != nil {
		return OfferKey{}, nil, err
	}
	if kind != item.Kind {
		return OfferKey{}, nil, fmt.Errorf("%w: collection is %s, reference is %s", ErrKindMismatch, kind, item.Kind)
	}
	if err := e.checkPayToken(reg, payToken); err != nil {
		return OfferKey{}, nil, err
	}
	if price == nil || price.Sign() <= 0 {
		return OfferKey{}, nil, fmt.Errorf("%w: offer price must be positive", ErrInvalidAmount)
	}
	if expirationTime <= e.now() {
		return OfferKey{}, nil, fmt.Errorf("%w: invalid expiration time", ErrInvalidTimeWindow)
	}
	key := OfferKey{Collection: item.Collection, TokenID: item.TokenID, Offeror: caller}
	if existing, ok := e.state.OfferGet(key); ok && existing.Exists() {
		return OfferKey{}, nil, fmt.Errorf("%w: offer exists", ErrAlreadyExists)
	}
	escrowed := e.cfg.EscrowOfferPaymentTokens()
	if escrowed {
		if err := e.ledger.HoldFunds(payToken, caller, price); err != nil {
			return OfferKey{}, nil, err
		}
	}
	offer := &Offer{
		Offeror:        caller,
		PayToken:       payToken,
		Price:          new(big.Int).Set(price),
		TokenAmount:    amount,
		ExpirationTime: expirationTime,
		PaidInEscrow:   escrowed,
	}
	if err := e.state.OfferPut(key, offer); err != nil {
		return OfferKey{}, nil, err
	}
	e.emit(NewOfferCreatedEvent(key, item, offer))
	return key, offer.Clone(), nil
}

// CancelOffer withdraws the caller's offer, refunding the escrowed payment if
// there is one. Expired offers remain cancellable; when nothing was escrowed
// the cancellation event is still emitted with a zero refund so consumers
// observe the removal.
func (e *OfferEngine) CancelOffer(caller ethcommon.Address, item Item) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: offer engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleOffer); err != nil {
		return err
	}
	key := OfferKey{Collection: item.Collection, TokenID: item.TokenID, Offeror: caller}
	offer, ok := e.state.OfferGet(key)
	if !ok || !offer.Exists() {
		return fmt.Errorf("%w: offer not exists", ErrNotFound)
	}
	refunded := big.NewInt(0)
	if offer.PaidInEscrow {
		if err := e.ledger.ReleaseFunds(offer.PayToken, offer.Offeror, offer.Price); err != nil {
			return err
		}
		refunded = new(big.Int).Set(offer.Price)
	}
	if err := e.state.OfferDelete(key); err != nil {
		return err
	}
	e.emit(NewOfferCancelledEvent(key, item, offer, refunded))
	return nil
}

// AcceptOffer settles an unexpired offer against the caller's holdings. Any
// live listing the caller has for the item is taken off sale, returning its
// escrowed quantity to the caller so it can back the trade. Payment comes
// from escrow when the offer was pre-funded and is pulled from the offeror
// otherwise; the split pays the fee recipient, the royalty recipient and the
// seller, and the items go to the offeror.
//
// Both sides are validated before any escrow mutation: the caller's
// effective item balance (wallet plus their own listing escrow) and, via the
// payment hold, the offeror's funds. A rejected acceptance therefore leaves
// the offer, the listings and the ledger untouched.
func (e *OfferEngine) AcceptOffer(caller ethcommon.Address, item Item, offeror ethcommon.Address) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: offer engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleOffer); err != nil {
		return err
	}
	key := OfferKey{Collection: item.Collection, TokenID: item.TokenID, Offeror: offeror}
	offer, ok := e.state.OfferGet(key)
	if !ok || !offer.Exists() {
		return fmt.Errorf("%w: offer not exists", ErrNotFound)
	}
	if e.now() >= offer.ExpirationTime {
		return fmt.Errorf("%w: offer expired", ErrInvalidTimeWindow)
	}
	reg, err := e.registry()
	if err != nil {
		return err
	}
	listed, err := e.listedQuantity(caller, item)
	if err != nil {
		return err
	}
	fromWallet := new(big.Int).Sub(offer.TokenAmount, listed)
	if fromWallet.Sign() < 0 {
		fromWallet = big.NewInt(0)
	}
	if err := e.checkItem(reg, caller, item, fromWallet); err != nil {
		return err
	}
	split, err := e.splitProceeds(reg, item, offer.Price, offer.Price, e.cfg.OfferFee(), true)
	if err != nil {
		return err
	}
	if !offer.PaidInEscrow {
		if err := e.ledger.HoldFunds(offer.PayToken, offer.Offeror, offer.Price); err != nil {
			return err
		}
	}
	delisted, err := e.delistItem(caller, item)
	if err != nil {
		return err
	}
	if err := e.payOut(offer.PayToken, caller, split); err != nil {
		return err
	}
	if err := e.ledger.HoldItem(caller, item, offer.TokenAmount); err != nil {
		return err
	}
	if err := e.ledger.ReleaseItem(offer.Offeror, item, offer.TokenAmount); err != nil {
		return err
	}
	if err := e.state.OfferDelete(key); err != nil {
		return err
	}
	e.emit(NewOfferAcceptedEvent(key, item, offer, caller, split, delisted))
	return nil
}

// listedQuantity totals the seller's live listing escrow for the item without
// touching it.
func (e *OfferEngine) listedQuantity(seller ethcommon.Address, item Item) (*big.Int, error) {
	keys, err := e.state.ListingsByItem(item.Collection, item.TokenID, seller)
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, key := range keys {
		listing, ok := e.state.ListingGet(key)
		if !ok || !listing.Exists() {
			continue
		}
		total = total.Add(total, listing.RemainingAmount)
	}
	return total, nil
}

// delistItem removes every live listing the seller has for the item,
// returning the escrowed quantities to them. Accepting an offer takes the
// item off sale.
func (e *OfferEngine) delistItem(seller ethcommon.Address, item Item) (*big.Int, error) {
	keys, err := e.state.ListingsByItem(item.Collection, item.TokenID, seller)
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, key := range keys {
		listing, ok := e.state.ListingGet(key)
		if !ok || !listing.Exists() {
			continue
		}
		if err := e.ledger.ReleaseItem(seller, item, listing.RemainingAmount); err != nil {
			return nil, err
		}
		if err := e.state.ListingDelete(key); err != nil {
			return nil, err
		}
		total = total.Add(total, listing.RemainingAmount)
	}
	return total, nil
}
