package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

const pepeAddress = "0x6982508145454Ce325dDbE47a25d4ec3d2311933"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResolverConfig() Config {
	return Config{
		BaseURL:         "https://api.test/latest/dex",
		QuoteSpellings:  []string{"USDT", "USDC"},
		CacheTTL:        time.Hour,
		NegativeTTL:     10 * time.Minute,
		MinLiquidityUSD: 1000,
	}
}

// fakeFetcher serves canned bodies keyed by the search query; queries without
// an entry get the fallback error.
type fakeFetcher struct {
	responses map[string][]byte
	fallback  error
	queries   []string
}

func (f *fakeFetcher) Get(_ context.Context, _ string, params url.Values) ([]byte, error) {
	q := params.Get("q")
	f.queries = append(f.queries, q)
	if body, ok := f.responses[q]; ok {
		return body, nil
	}
	if f.fallback != nil {
		return nil, f.fallback
	}
	return nil, domain.ErrNotFound
}

// memContracts is an in-memory domain.ContractStore.
type memContracts struct {
	cands     map[string][]domain.ChainCandidate
	failed    map[string]time.Time
	listings  []domain.VenueListing
	apiCalls  []domain.APICall
	saveCalls int
	getErr    error
}

func newMemContracts() *memContracts {
	return &memContracts{
		cands:  make(map[string][]domain.ChainCandidate),
		failed: make(map[string]time.Time),
	}
}

func (m *memContracts) SaveCandidates(_ context.Context, symbol string, cands []domain.ChainCandidate, _ time.Duration) error {
	if cands == nil {
		cands = []domain.ChainCandidate{}
	}
	m.cands[symbol] = cands
	m.saveCalls++
	return nil
}

func (m *memContracts) GetCandidates(_ context.Context, symbol string) ([]domain.ChainCandidate, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	cands, ok := m.cands[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cands, nil
}

func (m *memContracts) SaveFailedLookup(_ context.Context, symbol, _ string, retryAfter time.Time) error {
	m.failed[symbol] = retryAfter
	return nil
}

func (m *memContracts) FailedLookupActive(_ context.Context, symbol string) (bool, error) {
	retryAfter, ok := m.failed[symbol]
	return ok && time.Now().UTC().Before(retryAfter), nil
}

func (m *memContracts) SaveVenueListing(_ context.Context, listing domain.VenueListing) error {
	m.listings = append(m.listings, listing)
	return nil
}

func (m *memContracts) ListVenueListings(context.Context) ([]domain.VenueListing, error) {
	return m.listings, nil
}

func (m *memContracts) LogAPICall(_ context.Context, call domain.APICall) error {
	m.apiCalls = append(m.apiCalls, call)
	return nil
}

var _ domain.ContractStore = (*memContracts)(nil)

func searchBody(pairs ...string) []byte {
	out := `{"pairs":[`
	for i, p := range pairs {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return []byte(out + `]}`)
}

func pairJSON(chain, address, symbol string, liquidity float64) string {
	return fmt.Sprintf(`{"chainId":%q,"baseToken":{"address":%q,"name":"Test Token","symbol":%q},"liquidity":{"usd":%g}}`,
		chain, address, symbol, liquidity)
}

func TestResolveNativeCoinShortCircuits(t *testing.T) {
	fetcher := &fakeFetcher{}
	r := New(fetcher, nil, nil, testResolverConfig(), testLogger())

	cands, err := r.Resolve(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "ethereum", cands[0].ChainID)
	assert.Empty(t, cands[0].ContractAddress)
	assert.True(t, cands[0].Verified)
	assert.Empty(t, fetcher.queries, "native coins must not hit the network")
}

func TestResolveNetworkThenStoreHit(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[string][]byte{
			"PEPE/USDT": searchBody(pairJSON("ethereum", pepeAddress, "PEPE", 500_000)),
		},
	}
	store := newMemContracts()
	r := New(fetcher, store, nil, testResolverConfig(), testLogger())

	cands, err := r.Resolve(context.Background(), "PEPE/USDT")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "ethereum", cands[0].ChainID)
	assert.Equal(t, "0x6982508145454ce325ddbe47a25d4ec3d2311933", cands[0].ContractAddress)
	assert.Len(t, fetcher.queries, 2, "one search per quote spelling")

	// The second resolve is served from the persistent tier.
	again, err := r.Resolve(context.Background(), "pepe")
	require.NoError(t, err)
	assert.Equal(t, cands, again)
	assert.Len(t, fetcher.queries, 2)

	m := r.Metrics()
	assert.Equal(t, int64(1), m.StoreHits)
	assert.Equal(t, int64(1), m.Misses)
	assert.Equal(t, int64(2), m.NetworkCalls)
}

func TestResolveHotTierHit(t *testing.T) {
	fetcher := &fakeFetcher{}
	hot := &memCandidateCache{entries: map[string][]domain.ChainCandidate{
		"PEPE": {{ChainID: "ethereum", ContractAddress: "0xabc"}},
	}}
	r := New(fetcher, nil, hot, testResolverConfig(), testLogger())

	cands, err := r.Resolve(context.Background(), "PEPE")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Empty(t, fetcher.queries)
	assert.Equal(t, int64(1), r.Metrics().HotHits)
}

func TestResolveConfirmedMissCachedNegative(t *testing.T) {
	// All spellings answer 404: the symbol is confirmed absent, which is a
	// cacheable empty result, not an error.
	fetcher := &fakeFetcher{}
	store := newMemContracts()
	r := New(fetcher, store, nil, testResolverConfig(), testLogger())

	cands, err := r.Resolve(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.NotNil(t, cands)
	assert.Empty(t, cands)
	assert.Len(t, fetcher.queries, 2)

	// The miss is cached; no further network traffic.
	again, err := r.Resolve(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, fetcher.queries, 2)
}

func TestResolveUnavailableRecordsFailedLookup(t *testing.T) {
	fetcher := &fakeFetcher{fallback: domain.ErrServiceUnavailable}
	store := newMemContracts()
	r := New(fetcher, store, nil, testResolverConfig(), testLogger())

	_, err := r.Resolve(context.Background(), "PEPE")
	require.Error(t, err)
	assert.Contains(t, store.failed, "PEPE")

	// While the failure record is fresh, lookups are suppressed entirely.
	cands, err := r.Resolve(context.Background(), "PEPE")
	require.NoError(t, err)
	assert.Empty(t, cands)
	assert.Len(t, fetcher.queries, 2, "suppressed lookup must not hit the network")
}

func TestResolveDeduplicatesAcrossSpellings(t *testing.T) {
	// Both spellings return the same identity at different pool depths plus a
	// second chain; dedup keeps the deepest pool per identity and sorts by
	// liquidity.
	fetcher := &fakeFetcher{
		responses: map[string][]byte{
			"PEPE/USDT": searchBody(
				pairJSON("ethereum", pepeAddress, "PEPE", 100_000),
				pairJSON("bsc", "0x25d887Ce7a35172C62FeBFD67a1856F20FaEbB00", "PEPE", 40_000),
			),
			"PEPE/USDC": searchBody(
				pairJSON("ethereum", pepeAddress, "PEPE", 900_000),
			),
		},
	}
	r := New(fetcher, nil, nil, testResolverConfig(), testLogger())

	cands, err := r.Resolve(context.Background(), "PEPE")
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, "ethereum", cands[0].ChainID)
	assert.Equal(t, 900_000.0, cands[0].LiquidityUSD)
	assert.Equal(t, "bsc", cands[1].ChainID)
}

func TestResolveEmptySymbol(t *testing.T) {
	r := New(&fakeFetcher{}, nil, nil, testResolverConfig(), testLogger())
	_, err := r.Resolve(context.Background(), "  ")
	assert.Error(t, err)
}

func TestBaseTicker(t *testing.T) {
	assert.Equal(t, "PEPE", baseTicker("pepe/usdt"))
	assert.Equal(t, "PEPE", baseTicker(" pepe "))
	assert.Equal(t, "BTC", baseTicker("BTC/USDT"))
	assert.Equal(t, "", baseTicker("/USDT"))
}

// memCandidateCache is an in-memory domain.CandidateCache hot tier.
type memCandidateCache struct {
	entries map[string][]domain.ChainCandidate
}

func (m *memCandidateCache) Get(_ context.Context, symbol string) ([]domain.ChainCandidate, error) {
	cands, ok := m.entries[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cands, nil
}

func (m *memCandidateCache) Set(_ context.Context, symbol string, cands []domain.ChainCandidate, _ time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]domain.ChainCandidate)
	}
	m.entries[symbol] = cands
	return nil
}

var _ domain.CandidateCache = (*memCandidateCache)(nil)
