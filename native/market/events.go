package market

import (
	"math/big"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"nftmarket/core/types"
)

const (
	EventTypeAuctionCreated        = "market.auction.created"
	EventTypeAuctionBidPlaced      = "market.auction.bid_placed"
	EventTypeAuctionBidRefunded    = "market.auction.bid_refunded"
	EventTypeAuctionBidWithdrawn   = "market.auction.bid_withdrawn"
	EventTypeAuctionCancelled      = "market.auction.cancelled"
	EventTypeAuctionFinished       = "market.auction.finished"
	EventTypeAuctionReserveUpdated = "market.auction.reserve_updated"
	EventTypeListingCreated        = "market.listing.created"
	EventTypeListingUpdated        = "market.listing.updated"
	EventTypeListingCancelled      = "market.listing.cancelled"
	EventTypeListingPurchased      = "market.listing.purchased"
	EventTypeOfferCreated          = "market.offer.created"
	EventTypeOfferCancelled        = "market.offer.cancelled"
	EventTypeOfferAccepted         = "market.offer.accepted"
)

func itemAttrs(attrs map[string]string, item Item) {
	attrs["collection"] = item.Collection.Hex()
	attrs["tokenId"] = strconv.FormatUint(item.TokenID, 10)
	attrs["itemKind"] = item.Kind.String()
}

func amountAttr(attrs map[string]string, key string, v *big.Int) {
	if v == nil {
		attrs[key] = "0"
		return
	}
	attrs[key] = v.String()
}

// NewAuctionCreatedEvent reports a new auction with all of its parameters.
func NewAuctionCreatedEvent(key AuctionKey, item Item, a *Auction) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["owner"] = a.Owner.Hex()
	attrs["auctionId"] = strconv.FormatUint(key.AuctionID, 10)
	attrs["payToken"] = a.PayToken.Hex()
	amountAttr(attrs, "reservePrice", a.ReservePrice)
	amountAttr(attrs, "tokenAmount", a.TokenAmount)
	attrs["isMinBidReservePrice"] = strconv.FormatBool(a.MinBidReserve)
	attrs["startTime"] = strconv.FormatInt(a.StartTime, 10)
	attrs["endTime"] = strconv.FormatInt(a.EndTime, 10)
	return &types.Event{Type: EventTypeAuctionCreated, Attributes: attrs}
}

// NewBidPlacedEvent reports an accepted bid.
func NewBidPlacedEvent(key AuctionKey, item Item, a *Auction, b *HighestBid) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["owner"] = a.Owner.Hex()
	attrs["auctionId"] = strconv.FormatUint(key.AuctionID, 10)
	attrs["payToken"] = a.PayToken.Hex()
	attrs["bidder"] = b.Bidder.Hex()
	amountAttr(attrs, "bid", b.Amount)
	attrs["placedAt"] = strconv.FormatInt(b.PlacedAt, 10)
	return &types.Event{Type: EventTypeAuctionBidPlaced, Attributes: attrs}
}

// NewBidRefundedEvent reports the refund of an outbid bidder.
func NewBidRefundedEvent(key AuctionKey, item Item, a *Auction, b *HighestBid) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["owner"] = a.Owner.Hex()
	attrs["auctionId"] = strconv.FormatUint(key.AuctionID, 10)
	attrs["payToken"] = a.PayToken.Hex()
	attrs["bidder"] = b.Bidder.Hex()
	amountAttr(attrs, "bid", b.Amount)
	return &types.Event{Type: EventTypeAuctionBidRefunded, Attributes: attrs}
}

// NewBidWithdrawnEvent reports a post-auction withdrawal of a losing bid.
func NewBidWithdrawnEvent(key AuctionKey, item Item, a *Auction, b *HighestBid) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["owner"] = a.Owner.Hex()
	attrs["auctionId"] = strconv.FormatUint(key.AuctionID, 10)
	attrs["payToken"] = a.PayToken.Hex()
	attrs["bidder"] = b.Bidder.Hex()
	amountAttr(attrs, "bid", b.Amount)
	return &types.Event{Type: EventTypeAuctionBidWithdrawn, Attributes: attrs}
}

// NewAuctionCancelledEvent reports a cancelled auction, including any bid
// that was refunded as part of the cancellation.
func NewAuctionCancelledEvent(key AuctionKey, item Item, a *Auction, refunded *HighestBid) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["owner"] = a.Owner.Hex()
	attrs["auctionId"] = strconv.FormatUint(key.AuctionID, 10)
	if refunded.Exists() {
		attrs["refundedBidder"] = refunded.Bidder.Hex()
		amountAttr(attrs, "refundedBid", refunded.Amount)
	}
	return &types.Event{Type: EventTypeAuctionCancelled, Attributes: attrs}
}

// NewAuctionFinishedEvent reports a settled auction with its full split.
func NewAuctionFinishedEvent(key AuctionKey, item Item, a *Auction, winner ethcommon.Address, s *settlement) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["oldOwner"] = a.Owner.Hex()
	attrs["auctionId"] = strconv.FormatUint(key.AuctionID, 10)
	attrs["payToken"] = a.PayToken.Hex()
	attrs["winner"] = winner.Hex()
	amountAttr(attrs, "winningBid", s.Gross)
	amountAttr(attrs, "fee", s.Fee)
	amountAttr(attrs, "royalty", s.Royalty)
	amountAttr(attrs, "sellerProceeds", s.SellerProceeds)
	amountAttr(attrs, "tokenAmount", a.TokenAmount)
	return &types.Event{Type: EventTypeAuctionFinished, Attributes: attrs}
}

// NewReserveUpdatedEvent reports a decreased reserve price.
func NewReserveUpdatedEvent(key AuctionKey, item Item, a *Auction) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["owner"] = a.Owner.Hex()
	attrs["auctionId"] = strconv.FormatUint(key.AuctionID, 10)
	amountAttr(attrs, "reservePrice", a.ReservePrice)
	return &types.Event{Type: EventTypeAuctionReserveUpdated, Attributes: attrs}
}

// NewListingCreatedEvent reports a new fixed-price listing.
func NewListingCreatedEvent(key ListingKey, item Item, l *Listing) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["owner"] = l.Owner.Hex()
	attrs["listingId"] = strconv.FormatUint(key.ListingID, 10)
	attrs["payToken"] = l.PayToken.Hex()
	amountAttr(attrs, "unitPrice", l.UnitPrice)
	amountAttr(attrs, "tokenAmount", l.TokenAmount)
	amountAttr(attrs, "unitSize", l.UnitSize)
	attrs["startTime"] = strconv.FormatInt(l.StartTime, 10)
	return &types.Event{Type: EventTypeListingCreated, Attributes: attrs}
}

// NewListingUpdatedEvent reports a currency or price change.
func NewListingUpdatedEvent(key ListingKey, item Item, l *Listing) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["owner"] = l.Owner.Hex()
	attrs["listingId"] = strconv.FormatUint(key.ListingID, 10)
	attrs["payToken"] = l.PayToken.Hex()
	amountAttr(attrs, "unitPrice", l.UnitPrice)
	return &types.Event{Type: EventTypeListingUpdated, Attributes: attrs}
}

// NewListingCancelledEvent reports a cancelled listing and the quantity
// returned to the owner.
func NewListingCancelledEvent(key ListingKey, item Item, l *Listing) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["owner"] = l.Owner.Hex()
	attrs["listingId"] = strconv.FormatUint(key.ListingID, 10)
	amountAttr(attrs, "returnedAmount", l.RemainingAmount)
	return &types.Event{Type: EventTypeListingCancelled, Attributes: attrs}
}

// NewListingPurchasedEvent reports a (possibly partial) buy with its split
// and the quantity left on sale.
func NewListingPurchasedEvent(key ListingKey, item Item, l *Listing, buyer ethcommon.Address, quantity *big.Int, s *settlement) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["owner"] = l.Owner.Hex()
	attrs["listingId"] = strconv.FormatUint(key.ListingID, 10)
	attrs["payToken"] = l.PayToken.Hex()
	attrs["buyer"] = buyer.Hex()
	amountAttr(attrs, "quantity", quantity)
	amountAttr(attrs, "price", s.Gross)
	amountAttr(attrs, "fee", s.Fee)
	amountAttr(attrs, "royalty", s.Royalty)
	amountAttr(attrs, "sellerProceeds", s.SellerProceeds)
	amountAttr(attrs, "remainingAmount", l.RemainingAmount)
	return &types.Event{Type: EventTypeListingPurchased, Attributes: attrs}
}

// NewOfferCreatedEvent reports a new offer, including whether its payment was
// escrowed up front.
func NewOfferCreatedEvent(key OfferKey, item Item, o *Offer) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["offeror"] = o.Offeror.Hex()
	attrs["payToken"] = o.PayToken.Hex()
	amountAttr(attrs, "price", o.Price)
	amountAttr(attrs, "tokenAmount", o.TokenAmount)
	attrs["expirationTime"] = strconv.FormatInt(o.ExpirationTime, 10)
	attrs["isPayTokenInEscrow"] = strconv.FormatBool(o.PaidInEscrow)
	return &types.Event{Type: EventTypeOfferCreated, Attributes: attrs}
}

// NewOfferCancelledEvent reports a cancelled offer. The refunded amount is
// zero when the offer never escrowed payment; the event is still emitted so
// consumers observe the record's removal.
func NewOfferCancelledEvent(key OfferKey, item Item, o *Offer, refunded *big.Int) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["offeror"] = o.Offeror.Hex()
	attrs["payToken"] = o.PayToken.Hex()
	amountAttr(attrs, "price", o.Price)
	amountAttr(attrs, "refunded", refunded)
	return &types.Event{Type: EventTypeOfferCancelled, Attributes: attrs}
}

// NewOfferAcceptedEvent reports a settled offer with its split.
func NewOfferAcceptedEvent(key OfferKey, item Item, o *Offer, seller ethcommon.Address, s *settlement, delistedQty *big.Int) *types.Event {
	attrs := make(map[string]string)
	itemAttrs(attrs, item)
	attrs["offeror"] = o.Offeror.Hex()
	attrs["seller"] = seller.Hex()
	attrs["payToken"] = o.PayToken.Hex()
	amountAttr(attrs, "price", s.Gross)
	amountAttr(attrs, "fee", s.Fee)
	amountAttr(attrs, "royalty", s.Royalty)
	amountAttr(attrs, "sellerProceeds", s.SellerProceeds)
	amountAttr(attrs, "tokenAmount", o.TokenAmount)
	if delistedQty != nil && delistedQty.Sign() > 0 {
		amountAttr(attrs, "delistedAmount", delistedQty)
	}
	return &types.Event{Type: EventTypeOfferAccepted, Attributes: attrs}
}
