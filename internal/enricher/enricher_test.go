package enricher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeResolver maps base symbols to canned candidate sets or errors.
type fakeResolver struct {
	cands map[string][]domain.ChainCandidate
	errs  map[string]error
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, symbol string) ([]domain.ChainCandidate, error) {
	f.calls++
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.cands[symbol], nil
}

// memOppStore is an in-memory domain.OpportunityStore for sweep tests.
type memOppStore struct {
	incomplete []domain.Opportunity
	updated    []domain.Opportunity
	queryErr   error
}

func (m *memOppStore) InsertBatch(context.Context, []domain.Opportunity) error { return nil }

func (m *memOppStore) QueryRecent(context.Context, time.Duration, int) ([]domain.Opportunity, error) {
	return nil, nil
}

func (m *memOppStore) QueryIncompleteEnrichment(_ context.Context, _ time.Time, limit int) ([]domain.Opportunity, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if len(m.incomplete) > limit {
		return m.incomplete[:limit], nil
	}
	return m.incomplete, nil
}

func (m *memOppStore) UpdateEnrichment(_ context.Context, opp domain.Opportunity) error {
	m.updated = append(m.updated, opp)
	return nil
}

func (m *memOppStore) QueryBefore(context.Context, time.Time, int) ([]domain.Opportunity, error) {
	return nil, nil
}

func (m *memOppStore) DeleteByID(context.Context, []string) (int64, error) { return 0, nil }

var _ domain.OpportunityStore = (*memOppStore)(nil)

// listingRecorder is a domain.ContractStore that only records venue listings.
type listingRecorder struct {
	listings []domain.VenueListing
}

func (l *listingRecorder) SaveCandidates(context.Context, string, []domain.ChainCandidate, time.Duration) error {
	return nil
}

func (l *listingRecorder) GetCandidates(context.Context, string) ([]domain.ChainCandidate, error) {
	return nil, domain.ErrNotFound
}

func (l *listingRecorder) SaveFailedLookup(context.Context, string, string, time.Time) error {
	return nil
}

func (l *listingRecorder) FailedLookupActive(context.Context, string) (bool, error) {
	return false, nil
}

func (l *listingRecorder) SaveVenueListing(_ context.Context, listing domain.VenueListing) error {
	l.listings = append(l.listings, listing)
	return nil
}

func (l *listingRecorder) ListVenueListings(context.Context) ([]domain.VenueListing, error) {
	return l.listings, nil
}

func (l *listingRecorder) LogAPICall(context.Context, domain.APICall) error { return nil }

var _ domain.ContractStore = (*listingRecorder)(nil)

func opp(id, symbol string) domain.Opportunity {
	return domain.Opportunity{
		ID: id, Symbol: symbol,
		BuyVenue: "binance", SellVenue: "gateio",
		BuyPrice: 1, SellPrice: 2, ProfitPercent: 5, Volume: 10,
		ObservedAt: time.Now().UTC(),
	}
}

var pepeIdentity = domain.ChainCandidate{
	ChainID:         "ethereum",
	ContractAddress: "0x6982508145454ce325ddbe47a25d4ec3d2311933",
	TokenName:       "Pepe",
	LiquidityUSD:    500_000,
}

func TestEnrichBatchAppliesUniqueIdentity(t *testing.T) {
	resolver := &fakeResolver{cands: map[string][]domain.ChainCandidate{
		"PEPE/USDT": {pepeIdentity},
	}}
	contracts := &listingRecorder{}
	e := New(resolver, nil, contracts, Config{BatchSize: 10}, testLogger())

	opps := e.EnrichBatch(context.Background(), []domain.Opportunity{opp("1", "PEPE/USDT")})
	require.Len(t, opps, 1)
	assert.True(t, opps[0].EnrichmentComplete)
	require.NotNil(t, opps[0].Blockchain)
	assert.Equal(t, "ethereum", *opps[0].Blockchain)
	require.NotNil(t, opps[0].ChainID)
	assert.Equal(t, "1", *opps[0].ChainID)

	// Both venues' listings get pinned to the confirmed identity.
	require.Len(t, contracts.listings, 2)
	assert.Equal(t, "binance", contracts.listings[0].Venue)
	assert.Equal(t, "gateio", contracts.listings[1].Venue)
	assert.Equal(t, pepeIdentity, contracts.listings[0].Candidate)
}

func TestEnrichBatchAmbiguousStaysIncomplete(t *testing.T) {
	resolver := &fakeResolver{cands: map[string][]domain.ChainCandidate{
		"PEPE/USDT": {
			pepeIdentity,
			{ChainID: "bsc", ContractAddress: "0x25d887ce7a35172c62febfd67a1856f20faebb00"},
		},
	}}
	e := New(resolver, nil, nil, Config{BatchSize: 10}, testLogger())

	opps := e.EnrichBatch(context.Background(), []domain.Opportunity{opp("1", "PEPE/USDT")})
	assert.False(t, opps[0].EnrichmentComplete)
	assert.Nil(t, opps[0].Blockchain)
}

func TestEnrichBatchResolveErrorNeverFailsPipeline(t *testing.T) {
	resolver := &fakeResolver{errs: map[string]error{
		"PEPE/USDT": domain.ErrServiceUnavailable,
	}}
	e := New(resolver, nil, nil, Config{BatchSize: 10}, testLogger())

	opps := e.EnrichBatch(context.Background(), []domain.Opportunity{opp("1", "PEPE/USDT")})
	require.Len(t, opps, 1)
	assert.False(t, opps[0].EnrichmentComplete)
}

func TestEnrichBatchBound(t *testing.T) {
	resolver := &fakeResolver{cands: map[string][]domain.ChainCandidate{
		"A/USDT": {pepeIdentity},
		"B/USDT": {pepeIdentity},
		"C/USDT": {pepeIdentity},
	}}
	e := New(resolver, nil, nil, Config{BatchSize: 2}, testLogger())

	opps := e.EnrichBatch(context.Background(), []domain.Opportunity{
		opp("1", "A/USDT"), opp("2", "B/USDT"), opp("3", "C/USDT"),
	})
	assert.True(t, opps[0].EnrichmentComplete)
	assert.True(t, opps[1].EnrichmentComplete)
	assert.False(t, opps[2].EnrichmentComplete, "past the bound, left for the sweep")
	assert.Equal(t, 2, resolver.calls)
}

func TestEnrichBatchSkipsAlreadyComplete(t *testing.T) {
	resolver := &fakeResolver{}
	e := New(resolver, nil, nil, Config{BatchSize: 10}, testLogger())

	done := opp("1", "PEPE/USDT")
	done.EnrichmentComplete = true
	e.EnrichBatch(context.Background(), []domain.Opportunity{done})
	assert.Zero(t, resolver.calls)
}

func TestSweepWritesBackResolved(t *testing.T) {
	resolver := &fakeResolver{
		cands: map[string][]domain.ChainCandidate{"PEPE/USDT": {pepeIdentity}},
		errs:  map[string]error{"MYST/USDT": domain.ErrServiceUnavailable},
	}
	store := &memOppStore{incomplete: []domain.Opportunity{
		opp("1", "PEPE/USDT"),
		opp("2", "MYST/USDT"),
	}}
	e := New(resolver, store, nil, Config{SweepBatchSize: 100, ReResolveAge: 15 * time.Minute}, testLogger())

	completed, err := e.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	require.Len(t, store.updated, 1)
	assert.Equal(t, "1", store.updated[0].ID)
	assert.True(t, store.updated[0].EnrichmentComplete)
}

func TestSweepQueryFailure(t *testing.T) {
	store := &memOppStore{queryErr: errors.New("db down")}
	e := New(&fakeResolver{}, store, nil, Config{}, testLogger())

	_, err := e.Sweep(context.Background())
	assert.Error(t, err)
}

func TestSweepWithoutStoreIsNoOp(t *testing.T) {
	e := New(&fakeResolver{}, nil, nil, Config{}, testLogger())
	completed, err := e.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, completed)
}

func TestUniqueCandidate(t *testing.T) {
	_, ok := uniqueCandidate(nil)
	assert.False(t, ok)

	cand, ok := uniqueCandidate([]domain.ChainCandidate{pepeIdentity})
	assert.True(t, ok)
	assert.Equal(t, pepeIdentity, cand)

	// Same asset reported twice collapses to one.
	dup := pepeIdentity
	dup.LiquidityUSD = 1
	_, ok = uniqueCandidate([]domain.ChainCandidate{pepeIdentity, dup})
	assert.True(t, ok)

	_, ok = uniqueCandidate([]domain.ChainCandidate{
		pepeIdentity,
		{ChainID: "bsc", ContractAddress: "0xbbb"},
	})
	assert.False(t, ok)
}
