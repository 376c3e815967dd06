package market

import ethcommon "github.com/ethereum/go-ethereum/common"

// The engines persist records through these narrow interfaces; the host
// environment supplies the backing store and the transactional boundary that
// makes every operation atomic. Get returns a copy the caller may mutate.

type auctionState interface {
	AuctionPut(AuctionKey, *Auction) error
	AuctionGet(AuctionKey) (*Auction, bool)
	AuctionDelete(AuctionKey) error
	HighestBidPut(AuctionKey, *HighestBid) error
	HighestBidGet(AuctionKey) (*HighestBid, bool)
	HighestBidDelete(AuctionKey) error
	// NextMarketID allocates a fresh sub-identifier for divisible-item
	// records. Identifiers are never reused.
	NextMarketID() (uint64, error)
}

type listingState interface {
	ListingPut(ListingKey, *Listing) error
	ListingGet(ListingKey) (*Listing, bool)
	ListingDelete(ListingKey) error
	NextMarketID() (uint64, error)
}

type offerState interface {
	OfferPut(OfferKey, *Offer) error
	OfferGet(OfferKey) (*Offer, bool)
	OfferDelete(OfferKey) error
	// ListingsByItem enumerates the seller's live listings of an item so an
	// accepted offer can take the item off sale.
	ListingsByItem(collection ethcommon.Address, tokenID uint64, owner ethcommon.Address) ([]ListingKey, error)
	ListingGet(ListingKey) (*Listing, bool)
	ListingDelete(ListingKey) error
}

// State is the union the host implements; each engine depends only on its
// slice of it.
type State interface {
	auctionState
	listingState
	offerState
}
