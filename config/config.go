package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"nftmarket/native/market"
)

// Config is the host-level marketplace tuning loaded at startup. Governance
// can later adjust fees and the escrow toggle through the owner-gated
// marketplace config; durations and the withdrawal delay are fixed for the
// process lifetime.
type Config struct {
	MinAuctionDuration  int64  `toml:"MinAuctionDuration"`
	MaxAuctionDuration  int64  `toml:"MaxAuctionDuration"`
	BidWithdrawalDelay  int64  `toml:"BidWithdrawalDelay"`
	RoyaltyBelowReserve bool   `toml:"RoyaltyBelowReserve"`
	AuctionFee          uint64 `toml:"AuctionFee"`
	ListingFee          uint64 `toml:"ListingFee"`
	OfferFee            uint64 `toml:"OfferFee"`
	MinBidIncrement     int64  `toml:"MinBidIncrement"`
	FeeRecipient        string `toml:"FeeRecipient"`
	EscrowOfferPayments bool   `toml:"EscrowOfferPayments"`
}

// Default returns the shipped marketplace tuning.
func Default() *Config {
	tuning := market.DefaultTuning()
	return &Config{
		MinAuctionDuration:  tuning.MinAuctionDuration,
		MaxAuctionDuration:  tuning.MaxAuctionDuration,
		BidWithdrawalDelay:  tuning.BidWithdrawalDelay,
		RoyaltyBelowReserve: tuning.RoyaltyBelowReserve,
		AuctionFee:          market.DefaultAuctionFee,
		ListingFee:          market.DefaultListingFee,
		OfferFee:            market.DefaultOfferFee,
		MinBidIncrement:     1,
	}
}

// Load reads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engines cannot honour.
func (c *Config) Validate() error {
	if c.MinAuctionDuration <= 0 {
		return fmt.Errorf("config: MinAuctionDuration must be positive")
	}
	if c.MaxAuctionDuration < c.MinAuctionDuration {
		return fmt.Errorf("config: MaxAuctionDuration below MinAuctionDuration")
	}
	if c.BidWithdrawalDelay < 0 {
		return fmt.Errorf("config: BidWithdrawalDelay must be non-negative")
	}
	if c.AuctionFee > 1000 || c.ListingFee > 1000 || c.OfferFee > 1000 {
		return fmt.Errorf("config: fees are per mille and cannot exceed 1000")
	}
	if c.MinBidIncrement <= 0 {
		return fmt.Errorf("config: MinBidIncrement must be positive")
	}
	if c.FeeRecipient != "" && !ethcommon.IsHexAddress(c.FeeRecipient) {
		return fmt.Errorf("config: FeeRecipient is not a hex address")
	}
	return nil
}

// Tuning converts the file values into the engine tuning structure.
func (c *Config) Tuning() market.Tuning {
	return market.Tuning{
		MinAuctionDuration:  c.MinAuctionDuration,
		MaxAuctionDuration:  c.MaxAuctionDuration,
		BidWithdrawalDelay:  c.BidWithdrawalDelay,
		RoyaltyBelowReserve: c.RoyaltyBelowReserve,
	}
}

// FeeRecipientAddress parses the configured recipient, zero when unset.
func (c *Config) FeeRecipientAddress() ethcommon.Address {
	if c.FeeRecipient == "" {
		return ethcommon.Address{}
	}
	return ethcommon.HexToAddress(c.FeeRecipient)
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
