package market

import (
	"fmt"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"nftmarket/core/events"
	"nftmarket/core/types"
	nativecommon "nftmarket/native/common"
)

type mockState struct {
	auctions map[AuctionKey]*Auction
	bids     map[AuctionKey]*HighestBid
	listings map[ListingKey]*Listing
	offers   map[OfferKey]*Offer
	nextID   uint64
}

func newMockState() *mockState {
	return &mockState{
		auctions: make(map[AuctionKey]*Auction),
		bids:     make(map[AuctionKey]*HighestBid),
		listings: make(map[ListingKey]*Listing),
		offers:   make(map[OfferKey]*Offer),
	}
}

func (m *mockState) AuctionPut(key AuctionKey, a *Auction) error {
	sanitized, err := SanitizeAuction(a)
	if err != nil {
		return err
	}
	m.auctions[key] = sanitized
	return nil
}

func (m *mockState) AuctionGet(key AuctionKey) (*Auction, bool) {
	a, ok := m.auctions[key]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func (m *mockState) AuctionDelete(key AuctionKey) error {
	delete(m.auctions, key)
	return nil
}

func (m *mockState) HighestBidPut(key AuctionKey, b *HighestBid) error {
	sanitized, err := SanitizeHighestBid(b)
	if err != nil {
		return err
	}
	m.bids[key] = sanitized
	return nil
}

func (m *mockState) HighestBidGet(key AuctionKey) (*HighestBid, bool) {
	b, ok := m.bids[key]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (m *mockState) HighestBidDelete(key AuctionKey) error {
	delete(m.bids, key)
	return nil
}

func (m *mockState) ListingPut(key ListingKey, l *Listing) error {
	sanitized, err := SanitizeListing(l)
	if err != nil {
		return err
	}
	m.listings[key] = sanitized
	return nil
}

func (m *mockState) ListingGet(key ListingKey) (*Listing, bool) {
	l, ok := m.listings[key]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

func (m *mockState) ListingDelete(key ListingKey) error {
	delete(m.listings, key)
	return nil
}

func (m *mockState) ListingsByItem(collection ethcommon.Address, tokenID uint64, owner ethcommon.Address) ([]ListingKey, error) {
	var keys []ListingKey
	for key := range m.listings {
		if key.Collection == collection && key.TokenID == tokenID && key.Owner == owner {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *mockState) OfferPut(key OfferKey, o *Offer) error {
	sanitized, err := SanitizeOffer(o)
	if err != nil {
		return err
	}
	m.offers[key] = sanitized
	return nil
}

func (m *mockState) OfferGet(key OfferKey) (*Offer, bool) {
	o, ok := m.offers[key]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

func (m *mockState) OfferDelete(key OfferKey) error {
	delete(m.offers, key)
	return nil
}

func (m *mockState) NextMarketID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

type custodyKey struct {
	Owner      ethcommon.Address
	Collection ethcommon.Address
	TokenID    uint64
}

type mockCustody struct {
	kinds     map[ethcommon.Address]ItemKind
	balances  map[custodyKey]*big.Int
	escrowed  map[itemHoldKey]*big.Int
	approvals map[ethcommon.Address]bool
}

func newMockCustody() *mockCustody {
	return &mockCustody{
		kinds:     make(map[ethcommon.Address]ItemKind),
		balances:  make(map[custodyKey]*big.Int),
		escrowed:  make(map[itemHoldKey]*big.Int),
		approvals: make(map[ethcommon.Address]bool),
	}
}

func (m *mockCustody) Kind(collection ethcommon.Address) (ItemKind, error) {
	kind, ok := m.kinds[collection]
	if !ok {
		return 0, fmt.Errorf("unknown collection %s", collection.Hex())
	}
	return kind, nil
}

func (m *mockCustody) balance(key custodyKey) *big.Int {
	if v, ok := m.balances[key]; ok {
		return v
	}
	return big.NewInt(0)
}

func (m *mockCustody) BalanceOf(owner ethcommon.Address, item Item) (*big.Int, error) {
	return new(big.Int).Set(m.balance(custodyKey{Owner: owner, Collection: item.Collection, TokenID: item.TokenID})), nil
}

func (m *mockCustody) IsApproved(owner ethcommon.Address) (bool, error) {
	return m.approvals[owner], nil
}

func (m *mockCustody) TransferIn(from ethcommon.Address, item Item, qty *big.Int) error {
	key := custodyKey{Owner: from, Collection: item.Collection, TokenID: item.TokenID}
	if m.balance(key).Cmp(qty) < 0 {
		return fmt.Errorf("balance too low")
	}
	if !m.approvals[from] {
		return fmt.Errorf("not approved")
	}
	m.balances[key] = new(big.Int).Sub(m.balance(key), qty)
	held := itemHoldKey{Collection: item.Collection, TokenID: item.TokenID}
	cur := m.escrowed[held]
	if cur == nil {
		cur = big.NewInt(0)
	}
	m.escrowed[held] = new(big.Int).Add(cur, qty)
	return nil
}

func (m *mockCustody) TransferOut(to ethcommon.Address, item Item, qty *big.Int) error {
	held := itemHoldKey{Collection: item.Collection, TokenID: item.TokenID}
	cur := m.escrowed[held]
	if cur == nil || cur.Cmp(qty) < 0 {
		return fmt.Errorf("escrow balance too low")
	}
	m.escrowed[held] = new(big.Int).Sub(cur, qty)
	key := custodyKey{Owner: to, Collection: item.Collection, TokenID: item.TokenID}
	m.balances[key] = new(big.Int).Add(m.balance(key), qty)
	return nil
}

func (m *mockCustody) mint(owner ethcommon.Address, item Item, qty int64) {
	key := custodyKey{Owner: owner, Collection: item.Collection, TokenID: item.TokenID}
	m.balances[key] = new(big.Int).Add(m.balance(key), big.NewInt(qty))
}

type bankKey struct {
	Token  ethcommon.Address
	Holder ethcommon.Address
}

type mockBank struct {
	balances map[bankKey]*big.Int
	vault    map[ethcommon.Address]*big.Int
}

func newMockBank() *mockBank {
	return &mockBank{
		balances: make(map[bankKey]*big.Int),
		vault:    make(map[ethcommon.Address]*big.Int),
	}
}

func (m *mockBank) balance(key bankKey) *big.Int {
	if v, ok := m.balances[key]; ok {
		return v
	}
	return big.NewInt(0)
}

func (m *mockBank) vaultBalance(token ethcommon.Address) *big.Int {
	if v, ok := m.vault[token]; ok {
		return v
	}
	return big.NewInt(0)
}

func (m *mockBank) Pull(token, payer ethcommon.Address, amount *big.Int) error {
	key := bankKey{Token: token, Holder: payer}
	if m.balance(key).Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance")
	}
	m.balances[key] = new(big.Int).Sub(m.balance(key), amount)
	m.vault[token] = new(big.Int).Add(m.vaultBalance(token), amount)
	return nil
}

func (m *mockBank) Push(token, recipient ethcommon.Address, amount *big.Int) error {
	if m.vaultBalance(token).Cmp(amount) < 0 {
		return fmt.Errorf("vault balance too low")
	}
	m.vault[token] = new(big.Int).Sub(m.vaultBalance(token), amount)
	key := bankKey{Token: token, Holder: recipient}
	m.balances[key] = new(big.Int).Add(m.balance(key), amount)
	return nil
}

func (m *mockBank) fund(token, holder ethcommon.Address, amount int64) {
	key := bankKey{Token: token, Holder: holder}
	m.balances[key] = new(big.Int).Add(m.balance(key), big.NewInt(amount))
}

type mockPayments struct {
	enabled map[ethcommon.Address]bool
}

func (m *mockPayments) IsEnabled(token ethcommon.Address) bool { return m.enabled[token] }

type mockRoyalty struct {
	recipients map[ethcommon.Address]ethcommon.Address
	rates      map[ethcommon.Address]uint64
}

func newMockRoyalty() *mockRoyalty {
	return &mockRoyalty{
		recipients: make(map[ethcommon.Address]ethcommon.Address),
		rates:      make(map[ethcommon.Address]uint64),
	}
}

func (m *mockRoyalty) RoyaltyInfo(item Item, salePrice *big.Int) (ethcommon.Address, *big.Int, error) {
	rate, ok := m.rates[item.Collection]
	if !ok {
		return ethcommon.Address{}, big.NewInt(0), nil
	}
	return m.recipients[item.Collection], RoyaltyFee(salePrice, rate), nil
}

type mockAuth struct {
	owner ethcommon.Address
}

func (m *mockAuth) RequireOwner(caller ethcommon.Address) error {
	if caller != m.owner {
		return fmt.Errorf("caller is not the owner")
	}
	return nil
}

type capturingEmitter struct {
	events []*types.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	if me, ok := evt.(marketEvent); ok {
		c.events = append(c.events, me.Event())
	}
}

func (c *capturingEmitter) ofType(eventType string) []*types.Event {
	var out []*types.Event
	for _, evt := range c.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func (c *capturingEmitter) last() *types.Event {
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

func pausedModule(module string) *nativecommon.PauseSet {
	pauses := nativecommon.NewPauseSet()
	pauses.Pause(module)
	return pauses
}

func testAddress(fill byte) ethcommon.Address {
	var addr ethcommon.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var (
	addrOwner       = testAddress(0x01)
	addrSeller      = testAddress(0x02)
	addrBidder      = testAddress(0x03)
	addrOutbidder   = testAddress(0x04)
	addrRoyaltyRcpt = testAddress(0x05)
	addrFeeRcpt     = testAddress(0x06)
	addrOfferor     = testAddress(0x07)
	addrToken       = testAddress(0x20)
	addrOtherToken  = testAddress(0x21)
	addrUniqueColl  = testAddress(0x30)
	addrMultiColl   = testAddress(0x31)
)

// harness wires the three engines over shared mocks with a controllable
// clock.
type harness struct {
	state    *mockState
	custody  *mockCustody
	bank     *mockBank
	payments *mockPayments
	royalty  *mockRoyalty
	cfg      *Config
	ledger   *EscrowLedger
	auctions *AuctionEngine
	listings *ListingEngine
	offers   *OfferEngine
	emitter  *capturingEmitter
	now      int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		state:    newMockState(),
		custody:  newMockCustody(),
		bank:     newMockBank(),
		payments: &mockPayments{enabled: map[ethcommon.Address]bool{addrToken: true, addrOtherToken: true}},
		royalty:  newMockRoyalty(),
		emitter:  &capturingEmitter{},
		now:      1_000_000,
	}
	h.custody.kinds[addrUniqueColl] = KindUnique
	h.custody.kinds[addrMultiColl] = KindDivisible
	reg := &AddressRegistry{
		Items:     h.custody,
		Bank:      h.bank,
		Payments:  h.payments,
		Royalties: h.royalty,
		Auth:      &mockAuth{owner: addrOwner},
	}
	h.cfg = NewConfig(reg, addrFeeRcpt)
	h.ledger = NewEscrowLedger(h.cfg)
	tuning := DefaultTuning()
	h.auctions = NewAuctionEngine(h.state, h.cfg, h.ledger, tuning)
	h.listings = NewListingEngine(h.state, h.cfg, h.ledger, tuning)
	h.offers = NewOfferEngine(h.state, h.cfg, h.ledger, tuning)
	clock := func() int64 { return h.now }
	h.auctions.SetNowFunc(clock)
	h.listings.SetNowFunc(clock)
	h.offers.SetNowFunc(clock)
	h.auctions.SetEmitter(h.emitter)
	h.listings.SetEmitter(h.emitter)
	h.offers.SetEmitter(h.emitter)
	return h
}

func (h *harness) advance(seconds int64) { h.now += seconds }

// requireEscrowConservation asserts the ledger's held total equals the sum of
// every live record's claim on it: escrowed offers plus highest bids.
func (h *harness) requireEscrowConservation(t *testing.T, token ethcommon.Address) {
	t.Helper()
	claims := big.NewInt(0)
	for key, bid := range h.state.bids {
		auction, ok := h.state.auctions[key]
		if !ok {
			t.Fatalf("dangling highest bid for key %+v", key)
		}
		if auction.PayToken == token {
			claims = claims.Add(claims, bid.Amount)
		}
	}
	for _, offer := range h.state.offers {
		if offer.PaidInEscrow && offer.PayToken == token {
			claims = claims.Add(claims, offer.Price)
		}
	}
	held := h.ledger.HeldFunds(token)
	if held.Cmp(claims) != 0 {
		t.Fatalf("escrow conservation violated: held %s, claims %s", held, claims)
	}
	if h.bank.vaultBalance(token).Cmp(held) != 0 {
		t.Fatalf("bank vault %s disagrees with ledger held %s", h.bank.vaultBalance(token), held)
	}
}

func bigEq(t *testing.T, got *big.Int, want int64, label string) {
	t.Helper()
	if got == nil || got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("%s: got %s, want %d", label, got, want)
	}
}

func attrEq(t *testing.T, evt *types.Event, key, want string) {
	t.Helper()
	if evt == nil {
		t.Fatalf("missing event while asserting %s", key)
	}
	if got := evt.Attributes[key]; got != want {
		t.Fatalf("event %s attribute %s: got %q, want %q", evt.Type, key, got, want)
	}
}
