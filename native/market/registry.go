package market

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ItemCustody is the external registry holding the items themselves. The
// marketplace only ever moves items through TransferIn/TransferOut, so every
// escrowed quantity is attributable to the engine's custody account.
type ItemCustody interface {
	// Kind resolves the registry family of a collection.
	Kind(collection ethcommon.Address) (ItemKind, error)
	// BalanceOf reports the quantity of the item held by owner. Unique items
	// report zero or one.
	BalanceOf(owner ethcommon.Address, item Item) (*big.Int, error)
	// IsApproved reports whether owner granted the marketplace transfer
	// rights over their items.
	IsApproved(owner ethcommon.Address) (bool, error)
	// TransferIn moves qty of item from the holder into marketplace custody.
	TransferIn(from ethcommon.Address, item Item, qty *big.Int) error
	// TransferOut moves qty of item from marketplace custody to recipient.
	TransferOut(to ethcommon.Address, item Item, qty *big.Int) error
}

// CurrencyBank is the payment-currency transfer primitive. Pull debits the
// payer in favour of the marketplace account; Push credits the recipient from
// the marketplace account.
type CurrencyBank interface {
	Pull(token, payer ethcommon.Address, amount *big.Int) error
	Push(token, recipient ethcommon.Address, amount *big.Int) error
}

// PaymentTokens is the allow-list of currencies the marketplace settles in.
type PaymentTokens interface {
	IsEnabled(token ethcommon.Address) bool
}

// RoyaltyRegistry resolves the creator royalty for a sale. Implementations
// return a zero amount when no royalty is configured for the item.
type RoyaltyRegistry interface {
	RoyaltyInfo(item Item, salePrice *big.Int) (ethcommon.Address, *big.Int, error)
}

// Authorizer gates marketplace governance. RequireOwner returns nil only for
// the party allowed to mutate the marketplace configuration.
type Authorizer interface {
	RequireOwner(caller ethcommon.Address) error
}

// AddressRegistry bundles the external collaborators every engine operation
// consults. The registry is swappable through the owner-gated config setter;
// engines re-read it on each call and never cache the collaborators.
type AddressRegistry struct {
	Items     ItemCustody
	Bank      CurrencyBank
	Payments  PaymentTokens
	Royalties RoyaltyRegistry
	Auth      Authorizer
}
