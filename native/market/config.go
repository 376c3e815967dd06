package market

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Default platform fee rates in tenths of a percent and the default minimum
// bid increment, matching the values the marketplace launched with.
const (
	DefaultAuctionFee uint64 = 25
	DefaultListingFee uint64 = 25
	DefaultOfferFee   uint64 = 25
)

// Config is the mutable marketplace configuration shared by all three
// engines. Reads are unguarded; every mutation passes through the
// authorization collaborator so only the marketplace owner can change fees,
// recipients, or the escrow toggle.
type Config struct {
	auctionFee           uint64
	listingFee           uint64
	offerFee             uint64
	minBidIncrement      *big.Int
	feeRecipient         ethcommon.Address
	escrowOfferPayTokens bool
	registry             *AddressRegistry
}

// NewConfig builds a marketplace config with default fee rates. The registry
// must carry the authorization collaborator before any setter is usable.
func NewConfig(registry *AddressRegistry, feeRecipient ethcommon.Address) *Config {
	return &Config{
		auctionFee:      DefaultAuctionFee,
		listingFee:      DefaultListingFee,
		offerFee:        DefaultOfferFee,
		minBidIncrement: big.NewInt(1),
		feeRecipient:    feeRecipient,
		registry:        registry,
	}
}

// AuctionFee returns the auction platform fee in tenths of a percent.
func (c *Config) AuctionFee() uint64 { return c.auctionFee }

// ListingFee returns the listing platform fee in tenths of a percent.
func (c *Config) ListingFee() uint64 { return c.listingFee }

// OfferFee returns the offer platform fee in tenths of a percent.
func (c *Config) OfferFee() uint64 { return c.offerFee }

// MinBidIncrement returns the minimum amount a new bid must exceed the
// current highest bid by.
func (c *Config) MinBidIncrement() *big.Int { return cloneBigInt(c.minBidIncrement) }

// FeeRecipient returns the address platform fees are paid to.
func (c *Config) FeeRecipient() ethcommon.Address { return c.feeRecipient }

// EscrowOfferPaymentTokens reports whether new offers escrow their payment at
// creation time. Existing offers keep the snapshot taken when they were
// created.
func (c *Config) EscrowOfferPaymentTokens() bool { return c.escrowOfferPayTokens }

// Registry returns the currently registered collaborator set.
func (c *Config) Registry() *AddressRegistry { return c.registry }

func (c *Config) requireOwner(caller ethcommon.Address) error {
	if c == nil || c.registry == nil || c.registry.Auth == nil {
		return fmt.Errorf("market: authorizer not configured")
	}
	if err := c.registry.Auth.RequireOwner(caller); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

// UpdateAuctionFee sets the auction platform fee. Owner only.
func (c *Config) UpdateAuctionFee(caller ethcommon.Address, feePerMille uint64) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if feePerMille > platformFeeDenominator {
		return fmt.Errorf("%w: fee exceeds %d per mille", ErrInvalidAmount, platformFeeDenominator)
	}
	c.auctionFee = feePerMille
	return nil
}

// UpdateListingFee sets the listing platform fee. Owner only.
func (c *Config) UpdateListingFee(caller ethcommon.Address, feePerMille uint64) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if feePerMille > platformFeeDenominator {
		return fmt.Errorf("%w: fee exceeds %d per mille", ErrInvalidAmount, platformFeeDenominator)
	}
	c.listingFee = feePerMille
	return nil
}

// UpdateOfferFee sets the offer platform fee. Owner only.
func (c *Config) UpdateOfferFee(caller ethcommon.Address, feePerMille uint64) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if feePerMille > platformFeeDenominator {
		return fmt.Errorf("%w: fee exceeds %d per mille", ErrInvalidAmount, platformFeeDenominator)
	}
	c.offerFee = feePerMille
	return nil
}

// UpdateMinBidIncrement sets the minimum bid increment. Owner only.
func (c *Config) UpdateMinBidIncrement(caller ethcommon.Address, amount *big.Int) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: minimum bid increment must be positive", ErrInvalidAmount)
	}
	c.minBidIncrement = new(big.Int).Set(amount)
	return nil
}

// UpdateFeeRecipient sets the platform fee recipient. Owner only.
func (c *Config) UpdateFeeRecipient(caller, recipient ethcommon.Address) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	c.feeRecipient = recipient
	return nil
}

// UpdateEscrowOfferPaymentTokens toggles escrowing of new offers. Owner only.
func (c *Config) UpdateEscrowOfferPaymentTokens(caller ethcommon.Address, escrow bool) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	c.escrowOfferPayTokens = escrow
	return nil
}

// UpdateAddressRegistry swaps the collaborator set. Owner only. The previous
// registry's authorizer gates the swap.
func (c *Config) UpdateAddressRegistry(caller ethcommon.Address, registry *AddressRegistry) error {
	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if registry == nil {
		return fmt.Errorf("market: address registry must not be nil")
	}
	c.registry = registry
	return nil
}
