package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/native/market"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err, "default file should be written")

	// The written file round-trips.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadParsesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.toml")
	body := `
MinAuctionDuration = 600
MaxAuctionDuration = 86400
BidWithdrawalDelay = 7200
RoyaltyBelowReserve = false
AuctionFee = 30
ListingFee = 20
OfferFee = 10
MinBidIncrement = 5
FeeRecipient = "0x00000000000000000000000000000000000000aa"
EscrowOfferPayments = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(600), cfg.MinAuctionDuration)
	require.Equal(t, uint64(30), cfg.AuctionFee)
	require.True(t, cfg.EscrowOfferPayments)
	require.False(t, cfg.RoyaltyBelowReserve)

	tuning := cfg.Tuning()
	require.Equal(t, market.Tuning{
		MinAuctionDuration:  600,
		MaxAuctionDuration:  86400,
		BidWithdrawalDelay:  7200,
		RoyaltyBelowReserve: false,
	}, tuning)
	require.Equal(t, byte(0xaa), cfg.FeeRecipientAddress()[19])
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero min duration", mutate: func(c *Config) { c.MinAuctionDuration = 0 }},
		{name: "max below min", mutate: func(c *Config) { c.MaxAuctionDuration = c.MinAuctionDuration - 1 }},
		{name: "negative withdrawal delay", mutate: func(c *Config) { c.BidWithdrawalDelay = -1 }},
		{name: "auction fee above full price", mutate: func(c *Config) { c.AuctionFee = 1001 }},
		{name: "zero bid increment", mutate: func(c *Config) { c.MinBidIncrement = 0 }},
		{name: "malformed fee recipient", mutate: func(c *Config) { c.FeeRecipient = "not-an-address" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, Default().Validate())
}

func TestFeeRecipientAddressUnset(t *testing.T) {
	cfg := Default()
	require.Empty(t, cfg.FeeRecipient)
	require.True(t, cfg.FeeRecipientAddress() == [20]byte{})
}
