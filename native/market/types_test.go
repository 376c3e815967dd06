package market

import (
	"math/big"
	"testing"
)

func TestItemKind(t *testing.T) {
	if !KindUnique.Valid() || !KindDivisible.Valid() {
		t.Fatalf("known kinds must be valid")
	}
	if ItemKind(0).Valid() || ItemKind(3).Valid() {
		t.Fatalf("unknown kinds must be invalid")
	}
	if KindUnique.String() == KindDivisible.String() {
		t.Fatalf("kind names must differ")
	}
}

func TestSanitizeAuction(t *testing.T) {
	auction := &Auction{
		Owner:        addrSeller,
		PayToken:     addrToken,
		ReservePrice: big.NewInt(50),
		StartTime:    100,
		EndTime:      200,
		TokenAmount:  big.NewInt(1),
	}
	sanitized, err := SanitizeAuction(auction)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	// Sanitizing must not alias the caller's big.Ints.
	sanitized.ReservePrice.SetInt64(999)
	bigEq(t, auction.ReservePrice, 50, "caller reserve untouched")

	if _, err := SanitizeAuction(nil); err == nil {
		t.Fatalf("nil auction must be rejected")
	}
	if _, err := SanitizeAuction(&Auction{StartTime: 100, EndTime: 50, ReservePrice: big.NewInt(1), TokenAmount: big.NewInt(1)}); err == nil {
		t.Fatalf("inverted time window must be rejected")
	}
}

func TestSanitizeOffer(t *testing.T) {
	offer := &Offer{
		Offeror:        addrOfferor,
		PayToken:       addrToken,
		Price:          big.NewInt(10),
		TokenAmount:    big.NewInt(1),
		ExpirationTime: 500,
	}
	if _, err := SanitizeOffer(offer); err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if _, err := SanitizeOffer(&Offer{Price: big.NewInt(0), TokenAmount: big.NewInt(1), ExpirationTime: 500}); err == nil {
		t.Fatalf("non-positive price must be rejected")
	}
}

func TestCloneIsDeep(t *testing.T) {
	listing := &Listing{
		Owner:           addrSeller,
		PayToken:        addrToken,
		UnitPrice:       big.NewInt(100),
		StartTime:       1,
		TokenAmount:     big.NewInt(50),
		UnitSize:        big.NewInt(10),
		RemainingAmount: big.NewInt(50),
	}
	clone := listing.Clone()
	clone.RemainingAmount.SetInt64(7)
	bigEq(t, listing.RemainingAmount, 50, "original remaining untouched")

	bid := &HighestBid{Bidder: addrBidder, Amount: big.NewInt(60), PlacedAt: 2}
	bidClone := bid.Clone()
	bidClone.Amount.SetInt64(1)
	bigEq(t, bid.Amount, 60, "original bid untouched")
}

func TestExists(t *testing.T) {
	var auction *Auction
	if auction.Exists() {
		t.Fatalf("nil auction must not exist")
	}
	if (&Auction{}).Exists() {
		t.Fatalf("zero auction must not exist")
	}
	if !(&Auction{StartTime: 1}).Exists() {
		t.Fatalf("auction with a start time exists")
	}
	if (&HighestBid{Amount: big.NewInt(0)}).Exists() {
		t.Fatalf("zero bid must not exist")
	}
	if !(&HighestBid{Amount: big.NewInt(1)}).Exists() {
		t.Fatalf("positive bid exists")
	}
	if (&Offer{}).Exists() {
		t.Fatalf("zero offer must not exist")
	}
	if !(&Offer{ExpirationTime: 9}).Exists() {
		t.Fatalf("offer with an expiration exists")
	}
}
