package market

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ItemKind distinguishes the two registry families the marketplace trades:
// unique items (one owner per token id) and divisible items (per-owner
// balances of a token id).
type ItemKind uint8

const (
	KindUnique ItemKind = iota + 1
	KindDivisible
)

// Valid reports whether the kind value is within the supported range.
func (k ItemKind) Valid() bool {
	switch k {
	case KindUnique, KindDivisible:
		return true
	default:
		return false
	}
}

func (k ItemKind) String() string {
	switch k {
	case KindUnique:
		return "unique"
	case KindDivisible:
		return "divisible"
	default:
		return fmt.Sprintf("itemkind(%d)", uint8(k))
	}
}

// Item is a tagged reference to a tradeable token. Every operation that
// behaves differently per kind switches on Kind exhaustively.
type Item struct {
	Kind       ItemKind
	Collection ethcommon.Address
	TokenID    uint64
}

// UniqueItem builds a reference to a one-of-one token.
func UniqueItem(collection ethcommon.Address, tokenID uint64) Item {
	return Item{Kind: KindUnique, Collection: collection, TokenID: tokenID}
}

// DivisibleItem builds a reference to a semi-fungible token.
func DivisibleItem(collection ethcommon.Address, tokenID uint64) Item {
	return Item{Kind: KindDivisible, Collection: collection, TokenID: tokenID}
}

// AuctionKey addresses a single auction record. AuctionID is zero for unique
// items and a state-allocated sequence value for divisible items, permitting
// several concurrent auctions by the same owner.
type AuctionKey struct {
	Collection ethcommon.Address
	TokenID    uint64
	Owner      ethcommon.Address
	AuctionID  uint64
}

// ListingKey addresses a single listing record. ListingID follows the same
// convention as AuctionKey.AuctionID.
type ListingKey struct {
	Collection ethcommon.Address
	TokenID    uint64
	Owner      ethcommon.Address
	ListingID  uint64
}

// OfferKey addresses a standing offer. Offers bind to the item and the
// offeror, never to the current owner, so at most one offer per (item,
// offeror) pair can be active.
type OfferKey struct {
	Collection ethcommon.Address
	TokenID    uint64
	Offeror    ethcommon.Address
}

// Auction is a time-boxed ascending sale. The record exists iff StartTime is
// non-zero. TokenAmount is 1 for unique items and the escrowed quantity for
// divisible items.
type Auction struct {
	Owner         ethcommon.Address
	PayToken      ethcommon.Address
	ReservePrice  *big.Int
	MinBidReserve bool
	StartTime     int64
	EndTime       int64
	TokenAmount   *big.Int
}

// Exists reports whether the record denotes a live auction.
func (a *Auction) Exists() bool { return a != nil && a.StartTime != 0 }

// Clone returns a deep copy so callers can mutate the copy freely.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	clone.ReservePrice = cloneBigInt(a.ReservePrice)
	clone.TokenAmount = cloneBigInt(a.TokenAmount)
	return &clone
}

// HighestBid is the current leading bid on an auction. The record exists iff
// Amount is positive.
type HighestBid struct {
	Bidder   ethcommon.Address
	Amount   *big.Int
	PlacedAt int64
}

// Exists reports whether the record denotes a live bid.
func (b *HighestBid) Exists() bool { return b != nil && b.Amount != nil && b.Amount.Sign() > 0 }

// Clone returns a deep copy of the bid.
func (b *HighestBid) Clone() *HighestBid {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Amount = cloneBigInt(b.Amount)
	return &clone
}

// Listing is a fixed-price sale. For unique items TokenAmount, UnitSize and
// RemainingAmount are all 1. The record exists iff StartTime is non-zero.
type Listing struct {
	Owner           ethcommon.Address
	PayToken        ethcommon.Address
	UnitPrice       *big.Int
	StartTime       int64
	TokenAmount     *big.Int
	UnitSize        *big.Int
	RemainingAmount *big.Int
}

// Exists reports whether the record denotes a live listing.
func (l *Listing) Exists() bool { return l != nil && l.StartTime != 0 }

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	clone.UnitPrice = cloneBigInt(l.UnitPrice)
	clone.TokenAmount = cloneBigInt(l.TokenAmount)
	clone.UnitSize = cloneBigInt(l.UnitSize)
	clone.RemainingAmount = cloneBigInt(l.RemainingAmount)
	return &clone
}

// Offer is a standing bid by a prospective buyer. PaidInEscrow snapshots the
// marketplace escrow toggle at creation time; the refund path depends on the
// snapshot, never on the current toggle. The record exists iff ExpirationTime
// is non-zero.
type Offer struct {
	Offeror        ethcommon.Address
	PayToken       ethcommon.Address
	Price          *big.Int
	TokenAmount    *big.Int
	ExpirationTime int64
	PaidInEscrow   bool
}

// Exists reports whether the record denotes a live offer.
func (o *Offer) Exists() bool { return o != nil && o.ExpirationTime != 0 }

// Clone returns a deep copy of the offer.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Price = cloneBigInt(o.Price)
	clone.TokenAmount = cloneBigInt(o.TokenAmount)
	return &clone
}

// SanitizeAuction validates and normalises an auction record, returning a
// clone with non-nil amounts. The original value is never mutated.
func SanitizeAuction(a *Auction) (*Auction, error) {
	if a == nil {
		return nil, fmt.Errorf("market: nil auction")
	}
	clone := a.Clone()
	if clone.StartTime == 0 {
		return nil, fmt.Errorf("market: auction start time not set")
	}
	if clone.EndTime <= clone.StartTime {
		return nil, fmt.Errorf("market: auction end time before start time")
	}
	if clone.ReservePrice.Sign() < 0 {
		return nil, fmt.Errorf("market: auction reserve price must be non-negative")
	}
	if clone.TokenAmount.Sign() <= 0 {
		return nil, fmt.Errorf("market: auction token amount must be positive")
	}
	return clone, nil
}

// SanitizeHighestBid validates and normalises a bid record.
func SanitizeHighestBid(b *HighestBid) (*HighestBid, error) {
	if b == nil {
		return nil, fmt.Errorf("market: nil highest bid")
	}
	clone := b.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("market: bid amount must be positive")
	}
	return clone, nil
}

// SanitizeListing validates and normalises a listing record.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("market: nil listing")
	}
	clone := l.Clone()
	if clone.StartTime == 0 {
		return nil, fmt.Errorf("market: listing start time not set")
	}
	if clone.UnitPrice.Sign() < 0 {
		return nil, fmt.Errorf("market: listing unit price must be non-negative")
	}
	if clone.UnitSize.Sign() <= 0 {
		return nil, fmt.Errorf("market: listing unit size must be positive")
	}
	if clone.TokenAmount.Sign() <= 0 {
		return nil, fmt.Errorf("market: listing token amount must be positive")
	}
	if clone.RemainingAmount.Sign() <= 0 {
		return nil, fmt.Errorf("market: listing remaining amount must be positive")
	}
	if clone.RemainingAmount.Cmp(clone.TokenAmount) > 0 {
		return nil, fmt.Errorf("market: listing remaining amount exceeds total")
	}
	if new(big.Int).Mod(clone.TokenAmount, clone.UnitSize).Sign() != 0 {
		return nil, fmt.Errorf("market: listing token amount not a multiple of unit size")
	}
	return clone, nil
}

// SanitizeOffer validates and normalises an offer record.
func SanitizeOffer(o *Offer) (*Offer, error) {
	if o == nil {
		return nil, fmt.Errorf("market: nil offer")
	}
	clone := o.Clone()
	if clone.ExpirationTime == 0 {
		return nil, fmt.Errorf("market: offer expiration time not set")
	}
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("market: offer price must be positive")
	}
	if clone.TokenAmount.Sign() <= 0 {
		return nil, fmt.Errorf("market: offer token amount must be positive")
	}
	return clone, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
