package market

import (
	"fmt"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"nftmarket/core/events"
	"nftmarket/core/types"
	nativecommon "nftmarket/native/common"
)

// Module names used for pause gating.
const (
	ModuleAuction = "market.auction"
	ModuleListing = "market.listing"
	ModuleOffer   = "market.offer"
)

// Tuning carries the engine-level timing parameters and settlement policies
// that are fixed at construction rather than governed at runtime.
type Tuning struct {
	// MinAuctionDuration and MaxAuctionDuration bound end_time - start_time.
	MinAuctionDuration int64
	MaxAuctionDuration int64
	// BidWithdrawalDelay is how long after an auction ends a losing-reserve
	// bidder must wait before withdrawing.
	BidWithdrawalDelay int64
	// RoyaltyBelowReserve controls whether below-reserve settlements still
	// pay the creator royalty.
	RoyaltyBelowReserve bool
}

// DefaultTuning returns the engine defaults: 5 minute minimum, 30 day
// maximum, 12 hour withdrawal delay, royalties applied below reserve.
func DefaultTuning() Tuning {
	return Tuning{
		MinAuctionDuration:  5 * 60,
		MaxAuctionDuration:  30 * 24 * 60 * 60,
		BidWithdrawalDelay:  12 * 60 * 60,
		RoyaltyBelowReserve: true,
	}
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// engine is the plumbing shared by the auction, listing and offer engines:
// config, escrow ledger, clock, pause view and event emitter.
type engine struct {
	cfg     *Config
	ledger  *EscrowLedger
	tuning  Tuning
	emitter events.Emitter
	nowFn   func() int64
	pauses  nativecommon.PauseView
}

func newEngine(cfg *Config, ledger *EscrowLedger, tuning Tuning) engine {
	return engine{
		cfg:     cfg,
		ledger:  ledger,
		tuning:  tuning,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

func (e *engine) setEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *engine) setNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: evt})
}

func (e *engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *engine) registry() (*AddressRegistry, error) {
	if e == nil || e.cfg == nil {
		return nil, fmt.Errorf("market: config not configured")
	}
	reg := e.cfg.Registry()
	if reg == nil {
		return nil, fmt.Errorf("market: address registry not configured")
	}
	return reg, nil
}

// checkItem verifies the item reference against the custody registry and that
// the holder owns enough of it and has approved the marketplace. qty is the
// quantity about to be escrowed or transferred.
func (e *engine) checkItem(reg *AddressRegistry, holder ethcommon.Address, item Item, qty *big.Int) error {
	if reg.Items == nil {
		return fmt.Errorf("market: item custody not configured")
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("%w: unknown item kind %d", ErrKindMismatch, item.Kind)
	}
	kind, err := reg.Items.Kind(item.Collection)
	if err != nil {
		return err
	}
	if kind != item.Kind {
		return fmt.Errorf("%w: collection is %s, reference is %s", ErrKindMismatch, kind, item.Kind)
	}
	balance, err := reg.Items.BalanceOf(holder, item)
	if err != nil {
		return err
	}
	if balance == nil || balance.Cmp(qty) < 0 {
		return fmt.Errorf("%w: balance too low", ErrInsufficientBalance)
	}
	approved, err := reg.Items.IsApproved(holder)
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("%w: custody not granted by %s", ErrNotApproved, holder.Hex())
	}
	return nil
}

func (e *engine) checkPayToken(reg *AddressRegistry, token ethcommon.Address) error {
	if reg.Payments == nil {
		return fmt.Errorf("market: payment token registry not configured")
	}
	if !reg.Payments.IsEnabled(token) {
		return fmt.Errorf("%w: %s", ErrCurrencyNotEnabled, token.Hex())
	}
	return nil
}

// settlement is the deterministic split of a gross sale amount.
type settlement struct {
	Gross            *big.Int
	Fee              *big.Int
	Royalty          *big.Int
	RoyaltyRecipient ethcommon.Address
	SellerProceeds   *big.Int
}

// splitProceeds computes fee and royalty for a sale. feeBase is the portion
// of the gross amount the platform fee applies to; the royalty is quoted by
// the registry on the gross minus fee and clamped so the seller payout can
// never go negative. The invariant Gross == Fee + Royalty + SellerProceeds
// holds exactly.
func (e *engine) splitProceeds(reg *AddressRegistry, item Item, gross, feeBase *big.Int, feePerMille uint64, withRoyalty bool) (*settlement, error) {
	if gross == nil || gross.Sign() <= 0 {
		return nil, fmt.Errorf("%w: sale amount must be positive", ErrInvalidAmount)
	}
	fee := PlatformFee(feeBase, feePerMille)
	if fee.Cmp(gross) > 0 {
		fee = new(big.Int).Set(gross)
	}
	afterFee := new(big.Int).Sub(gross, fee)
	royalty := big.NewInt(0)
	var royaltyRecipient ethcommon.Address
	if withRoyalty && reg.Royalties != nil && afterFee.Sign() > 0 {
		recipient, amount, err := reg.Royalties.RoyaltyInfo(item, afterFee)
		if err != nil {
			return nil, err
		}
		if amount != nil && amount.Sign() > 0 {
			if amount.Cmp(afterFee) > 0 {
				return nil, fmt.Errorf("%w: royalty exceeds sale proceeds", ErrInvalidAmount)
			}
			royalty = new(big.Int).Set(amount)
			royaltyRecipient = recipient
		}
	}
	proceeds := new(big.Int).Sub(afterFee, royalty)
	return &settlement{
		Gross:            new(big.Int).Set(gross),
		Fee:              fee,
		Royalty:          royalty,
		RoyaltyRecipient: royaltyRecipient,
		SellerProceeds:   proceeds,
	}, nil
}

// payOut releases a computed settlement from escrowed funds: fee recipient,
// royalty recipient, then seller. The caller must already have the gross
// amount held in the ledger.
func (e *engine) payOut(token ethcommon.Address, seller ethcommon.Address, s *settlement) error {
	if s == nil {
		return fmt.Errorf("market: nil settlement")
	}
	if s.Fee.Sign() > 0 {
		if err := e.ledger.ReleaseFunds(token, e.cfg.FeeRecipient(), s.Fee); err != nil {
			return err
		}
	}
	if s.Royalty.Sign() > 0 {
		if err := e.ledger.ReleaseFunds(token, s.RoyaltyRecipient, s.Royalty); err != nil {
			return err
		}
	}
	if s.SellerProceeds.Sign() > 0 {
		if err := e.ledger.ReleaseFunds(token, seller, s.SellerProceeds); err != nil {
			return err
		}
	}
	return nil
}
