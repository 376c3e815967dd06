package market

import "math/big"

// Fee math is integer-only with floor division; any rounding remainder stays
// with the seller. Platform fees are expressed in tenths of a percent
// (per-mille), royalties in basis points (per-ten-thousand).

const (
	platformFeeDenominator = 1_000
	royaltyDenominator     = 10_000
)

// PlatformFee computes floor(base * feePerMille / 1000). A nil or
// non-positive base yields zero.
func PlatformFee(base *big.Int, feePerMille uint64) *big.Int {
	if base == nil || base.Sign() <= 0 || feePerMille == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(base, new(big.Int).SetUint64(feePerMille))
	return fee.Div(fee, big.NewInt(platformFeeDenominator))
}

// RoyaltyFee computes floor(priceAfterFee * royaltyBps / 10000). It mirrors
// the arithmetic royalty registries apply so tests and mocks agree with
// production lookups.
func RoyaltyFee(priceAfterFee *big.Int, royaltyBps uint64) *big.Int {
	if priceAfterFee == nil || priceAfterFee.Sign() <= 0 || royaltyBps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(priceAfterFee, new(big.Int).SetUint64(royaltyBps))
	return fee.Div(fee, big.NewInt(royaltyDenominator))
}

// AuctionFeeBase returns the portion of a winning bid the auction fee applies
// to: the amount strictly above the reserve price. The reserve portion itself
// is never charged, so a below-reserve settlement carries no platform fee.
func AuctionFeeBase(winningBid, reservePrice *big.Int) *big.Int {
	if winningBid == nil || winningBid.Sign() <= 0 {
		return big.NewInt(0)
	}
	if reservePrice == nil || reservePrice.Sign() <= 0 {
		return new(big.Int).Set(winningBid)
	}
	base := new(big.Int).Sub(winningBid, reservePrice)
	if base.Sign() < 0 {
		return big.NewInt(0)
	}
	return base
}
