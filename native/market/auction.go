package market

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"nftmarket/core/events"
	nativecommon "nftmarket/native/common"
)

// AuctionEngine runs time-boxed ascending auctions with reserve prices. Items
// are escrowed for the lifetime of the auction; the highest bid is the only
// escrowed bid at any moment, every outbid payment being refunded in full
// immediately.
type AuctionEngine struct {
	engine
	state auctionState
}

// NewAuctionEngine constructs an auction engine over the supplied state,
// shared marketplace config and escrow ledger.
func NewAuctionEngine(state auctionState, cfg *Config, ledger *EscrowLedger, tuning Tuning) *AuctionEngine {
	return &AuctionEngine{engine: newEngine(cfg, ledger, tuning), state: state}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *AuctionEngine) SetEmitter(emitter events.Emitter) { e.setEmitter(emitter) }

// SetNowFunc overrides the time source, primarily used in tests.
func (e *AuctionEngine) SetNowFunc(now func() int64) { e.setNowFunc(now) }

// SetPauses configures the pause view gating every mutating operation.
func (e *AuctionEngine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// GetAuction returns a copy of the auction at key, if one exists.
func (e *AuctionEngine) GetAuction(key AuctionKey) (*Auction, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	a, ok := e.state.AuctionGet(key)
	if !ok || !a.Exists() {
		return nil, false
	}
	return a.Clone(), true
}

// GetHighestBid returns a copy of the highest bid at key, if one exists.
func (e *AuctionEngine) GetHighestBid(key AuctionKey) (*HighestBid, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	b, ok := e.state.HighestBidGet(key)
	if !ok || !b.Exists() {
		return nil, false
	}
	return b.Clone(), true
}

// CreateAuction escrows the item and opens an auction. qty is ignored for
// unique items and must be positive for divisible items. The auction duration
// must lie within the engine's configured bounds.
func (e *AuctionEngine) CreateAuction(caller ethcommon.Address, item Item, qty *big.Int, payToken ethcommon.Address, reservePrice *big.Int, startTime, endTime int64, minBidReserve bool) (AuctionKey, *Auction, error) {
	if e == nil || e.state == nil {
		return AuctionKey{}, nil, fmt.Errorf("market: auction engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleAuction); err != nil {
		return AuctionKey{}, nil, err
	}
	reg, err := e.registry()
	if err != nil {
		return AuctionKey{}, nil, err
	}
	amount, err := normalizeQuantity(item, qty)
	if err != nil {
		return AuctionKey{}, nil, err
	}
	// Existence is checked before custody so re-auctioning an item that is
	// already in escrow reports the duplicate, not the missing balance.
	key := AuctionKey{Collection: item.Collection, TokenID: item.TokenID, Owner: caller}
	if item.Kind == KindDivisible {
		id, err := e.state.NextMarketID()
		if err != nil {
			return AuctionKey{}, nil, err
		}
		key.AuctionID = id
	}
	if existing, ok := e.state.AuctionGet(key); ok && existing.Exists() {
		return AuctionKey{}, nil, fmt.Errorf("%w: auction exists", ErrAlreadyExists)
	}
	if err := e.checkItem(reg, caller, item, amount); err != nil {
		return AuctionKey{}, nil, err
	}
	if err := e.checkPayToken(reg, payToken); err != nil {
		return AuctionKey{}, nil, err
	}
	if reservePrice == nil || reservePrice.Sign() < 0 {
		return AuctionKey{}, nil, fmt.Errorf("%w: reserve price must be non-negative", ErrInvalidAmount)
	}
	duration := endTime - startTime
	if duration > e.tuning.MaxAuctionDuration {
		return AuctionKey{}, nil, fmt.Errorf("%w: auction time exceeds maximum duration", ErrInvalidTimeWindow)
	}
	if duration < e.tuning.MinAuctionDuration {
		return AuctionKey{}, nil, fmt.Errorf("%w: auction time does not meet minimum duration", ErrInvalidTimeWindow)
	}
	if startTime <= 0 {
		return AuctionKey{}, nil, fmt.Errorf("%w: invalid start time", ErrInvalidTimeWindow)
	}
	if err := e.ledger.HoldItem(caller, item, amount); err != nil {
		return AuctionKey{}, nil, err
	}
	auction := &Auction{
		Owner:         caller,
		PayToken:      payToken,
		ReservePrice:  new(big.Int).Set(reservePrice),
		MinBidReserve: minBidReserve,
		StartTime:     startTime,
		EndTime:       endTime,
		TokenAmount:   amount,
	}
	if err := e.state.AuctionPut(key, auction); err != nil {
		return AuctionKey{}, nil, err
	}
	e.emit(NewAuctionCreatedEvent(key, item, auction))
	return key, auction.Clone(), nil
}

// PlaceBid escrows the caller's bid and refunds the previous highest bidder
// in full. Each accepted bid must exceed the previous one by at least the
// configured minimum increment.
func (e *AuctionEngine) PlaceBid(caller ethcommon.Address, item Item, owner ethcommon.Address, auctionID uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: auction engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleAuction); err != nil {
		return err
	}
	key := AuctionKey{Collection: item.Collection, TokenID: item.TokenID, Owner: owner, AuctionID: auctionID}
	auction, ok := e.state.AuctionGet(key)
	if !ok || !auction.Exists() {
		return fmt.Errorf("%w: auction not exists", ErrNotFound)
	}
	now := e.now()
	if now < auction.StartTime {
		return fmt.Errorf("%w: auction not started", ErrInvalidTimeWindow)
	}
	if now >= auction.EndTime {
		return fmt.Errorf("%w: auction ended", ErrInvalidTimeWindow)
	}
	if caller == auction.Owner {
		return fmt.Errorf("%w: bidder is auction owner", ErrUnauthorized)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: bid must be positive", ErrInvalidAmount)
	}
	if auction.MinBidReserve && amount.Cmp(auction.ReservePrice) < 0 {
		return fmt.Errorf("%w: bid lower than reserve price", ErrInvalidAmount)
	}
	prev, outbid := e.state.HighestBidGet(key)
	if outbid && prev.Exists() {
		floor := new(big.Int).Add(prev.Amount, e.cfg.MinBidIncrement())
		if amount.Cmp(floor) < 0 {
			return fmt.Errorf("%w: low bid amount", ErrInvalidAmount)
		}
	} else {
		outbid = false
	}
	if err := e.ledger.HoldFunds(auction.PayToken, caller, amount); err != nil {
		return err
	}
	if outbid {
		if err := e.ledger.ReleaseFunds(auction.PayToken, prev.Bidder, prev.Amount); err != nil {
			return err
		}
	}
	bid := &HighestBid{Bidder: caller, Amount: new(big.Int).Set(amount), PlacedAt: now}
	if err := e.state.HighestBidPut(key, bid); err != nil {
		return err
	}
	if outbid {
		e.emit(NewBidRefundedEvent(key, item, auction, prev))
	}
	e.emit(NewBidPlacedEvent(key, item, auction, bid))
	return nil
}

// CancelAuction returns the escrowed items to the owner and refunds any bid.
// It is rejected once the highest bid meets the reserve price; a winning
// auction can only be finished.
func (e *AuctionEngine) CancelAuction(caller ethcommon.Address, item Item, owner ethcommon.Address, auctionID uint64) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: auction engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleAuction); err != nil {
		return err
	}
	key := AuctionKey{Collection: item.Collection, TokenID: item.TokenID, Owner: owner, AuctionID: auctionID}
	auction, ok := e.state.AuctionGet(key)
	if !ok || !auction.Exists() {
		return fmt.Errorf("%w: auction not exists", ErrNotFound)
	}
	if caller != auction.Owner {
		return fmt.Errorf("%w: not owner", ErrUnauthorized)
	}
	bid, hasBid := e.state.HighestBidGet(key)
	if hasBid && bid.Exists() {
		if bid.Amount.Cmp(auction.ReservePrice) >= 0 {
			return fmt.Errorf("%w: highest bid above reserve price", ErrInvalidAmount)
		}
		if err := e.ledger.ReleaseFunds(auction.PayToken, bid.Bidder, bid.Amount); err != nil {
			return err
		}
		if err := e.state.HighestBidDelete(key); err != nil {
			return err
		}
	} else {
		bid = nil
	}
	if err := e.ledger.ReleaseItem(auction.Owner, item, auction.TokenAmount); err != nil {
		return err
	}
	if err := e.state.AuctionDelete(key); err != nil {
		return err
	}
	e.emit(NewAuctionCancelledEvent(key, item, auction, bid))
	return nil
}

// WithdrawBid lets the highest bidder reclaim a bid that failed to meet the
// reserve price once the auction has ended and the withdrawal delay elapsed.
// The auction record survives so the owner may still settle below reserve.
func (e *AuctionEngine) WithdrawBid(caller ethcommon.Address, item Item, owner ethcommon.Address, auctionID uint64) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: auction engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleAuction); err != nil {
		return err
	}
	key := AuctionKey{Collection: item.Collection, TokenID: item.TokenID, Owner: owner, AuctionID: auctionID}
	auction, ok := e.state.AuctionGet(key)
	if !ok || !auction.Exists() {
		return fmt.Errorf("%w: auction not exists", ErrNotFound)
	}
	bid, ok := e.state.HighestBidGet(key)
	if !ok || !bid.Exists() {
		return fmt.Errorf("%w: highest bid not exists", ErrNotFound)
	}
	if caller != bid.Bidder {
		return fmt.Errorf("%w: not highest bidder", ErrUnauthorized)
	}
	now := e.now()
	if now < auction.EndTime {
		return fmt.Errorf("%w: auction not ended", ErrInvalidTimeWindow)
	}
	if bid.Amount.Cmp(auction.ReservePrice) >= 0 {
		return fmt.Errorf("%w: highest bid above reserve price", ErrInvalidAmount)
	}
	if now < auction.EndTime+e.tuning.BidWithdrawalDelay {
		return fmt.Errorf("%w: must wait to withdraw", ErrInvalidTimeWindow)
	}
	if err := e.ledger.ReleaseFunds(auction.PayToken, bid.Bidder, bid.Amount); err != nil {
		return err
	}
	if err := e.state.HighestBidDelete(key); err != nil {
		return err
	}
	e.emit(NewBidWithdrawnEvent(key, item, auction, bid))
	return nil
}

// FinishAuction settles an ended auction whose highest bid met the reserve
// price. Callable by the auction owner or the highest bidder. The platform
// fee applies only to the amount above the reserve; the royalty is quoted on
// the bid net of fee; the seller keeps the remainder.
func (e *AuctionEngine) FinishAuction(caller ethcommon.Address, item Item, owner ethcommon.Address, auctionID uint64) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: auction engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleAuction); err != nil {
		return err
	}
	key := AuctionKey{Collection: item.Collection, TokenID: item.TokenID, Owner: owner, AuctionID: auctionID}
	auction, ok := e.state.AuctionGet(key)
	if !ok || !auction.Exists() {
		return fmt.Errorf("%w: auction not exists", ErrNotFound)
	}
	if e.now() < auction.EndTime {
		return fmt.Errorf("%w: auction not ended", ErrInvalidTimeWindow)
	}
	bid, ok := e.state.HighestBidGet(key)
	if !ok || !bid.Exists() {
		return fmt.Errorf("%w: highest bid not exists", ErrNotFound)
	}
	if caller != auction.Owner && caller != bid.Bidder {
		return fmt.Errorf("%w: not auction or highest bid owner", ErrUnauthorized)
	}
	if bid.Amount.Cmp(auction.ReservePrice) < 0 {
		return fmt.Errorf("%w: highest bid below reserve price", ErrInvalidAmount)
	}
	return e.settleAuction(key, item, auction, bid, true)
}

// FinishAuctionBelowReservePrice lets the owner accept a highest bid that
// stayed under the reserve. The reserve-excess fee base is zero here, so no
// platform fee is charged; whether the creator royalty still applies is an
// engine policy.
func (e *AuctionEngine) FinishAuctionBelowReservePrice(caller ethcommon.Address, item Item, owner ethcommon.Address, auctionID uint64) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: auction engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleAuction); err != nil {
		return err
	}
	key := AuctionKey{Collection: item.Collection, TokenID: item.TokenID, Owner: owner, AuctionID: auctionID}
	auction, ok := e.state.AuctionGet(key)
	if !ok || !auction.Exists() {
		return fmt.Errorf("%w: auction not exists", ErrNotFound)
	}
	if caller != auction.Owner {
		return fmt.Errorf("%w: not owner", ErrUnauthorized)
	}
	if e.now() < auction.EndTime {
		return fmt.Errorf("%w: auction not ended", ErrInvalidTimeWindow)
	}
	bid, ok := e.state.HighestBidGet(key)
	if !ok || !bid.Exists() {
		return fmt.Errorf("%w: highest bid not exists", ErrNotFound)
	}
	if bid.Amount.Cmp(auction.ReservePrice) >= 0 {
		return fmt.Errorf("%w: highest bid above reserve price", ErrInvalidAmount)
	}
	return e.settleAuction(key, item, auction, bid, e.tuning.RoyaltyBelowReserve)
}

// UpdateAuctionReservePrice lowers the reserve price of the caller's auction.
// Increases are rejected so bidders can rely on the reserve never moving away
// from them.
func (e *AuctionEngine) UpdateAuctionReservePrice(caller ethcommon.Address, item Item, auctionID uint64, reservePrice *big.Int) error {
	if e == nil || e.state == nil {
		return fmt.Errorf("market: auction engine state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleAuction); err != nil {
		return err
	}
	key := AuctionKey{Collection: item.Collection, TokenID: item.TokenID, Owner: caller, AuctionID: auctionID}
	auction, ok := e.state.AuctionGet(key)
	if !ok || !auction.Exists() {
		return fmt.Errorf("%w: auction not exists", ErrNotFound)
	}
	if reservePrice == nil || reservePrice.Sign() < 0 {
		return fmt.Errorf("%w: reserve price must be non-negative", ErrInvalidAmount)
	}
	if reservePrice.Cmp(auction.ReservePrice) > 0 {
		return fmt.Errorf("%w: reserve price can only decrease", ErrInvalidAmount)
	}
	auction.ReservePrice = new(big.Int).Set(reservePrice)
	if err := e.state.AuctionPut(key, auction); err != nil {
		return err
	}
	e.emit(NewReserveUpdatedEvent(key, item, auction))
	return nil
}

func (e *AuctionEngine) settleAuction(key AuctionKey, item Item, auction *Auction, bid *HighestBid, withRoyalty bool) error {
	reg, err := e.registry()
	if err != nil {
		return err
	}
	feeBase := AuctionFeeBase(bid.Amount, auction.ReservePrice)
	split, err := e.splitProceeds(reg, item, bid.Amount, feeBase, e.cfg.AuctionFee(), withRoyalty)
	if err != nil {
		return err
	}
	if err := e.payOut(auction.PayToken, auction.Owner, split); err != nil {
		return err
	}
	if err := e.ledger.ReleaseItem(bid.Bidder, item, auction.TokenAmount); err != nil {
		return err
	}
	if err := e.state.HighestBidDelete(key); err != nil {
		return err
	}
	if err := e.state.AuctionDelete(key); err != nil {
		return err
	}
	e.emit(NewAuctionFinishedEvent(key, item, auction, bid.Bidder, split))
	return nil
}

// normalizeQuantity resolves the escrow quantity for an item reference: one
// for unique items (any explicit value other than one is rejected), the
// caller-supplied positive amount for divisible items.
func normalizeQuantity(item Item, qty *big.Int) (*big.Int, error) {
	switch item.Kind {
	case KindUnique:
		if qty != nil && qty.Cmp(big.NewInt(1)) != 0 {
			return nil, fmt.Errorf("%w: unique items trade in single units", ErrInvalidAmount)
		}
		return big.NewInt(1), nil
	case KindDivisible:
		if qty == nil || qty.Sign() <= 0 {
			return nil, fmt.Errorf("%w: invalid amount", ErrInvalidAmount)
		}
		return new(big.Int).Set(qty), nil
	default:
		return nil, fmt.Errorf("%w: unknown item kind %d", ErrKindMismatch, item.Kind)
	}
}
