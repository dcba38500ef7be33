package linker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/walletlink/service/solana"
)

// fakeFetcher implements HistoryFetcher over in-memory histories.
type fakeFetcher struct {
	mu         sync.Mutex
	histories  map[string][]string // wallet -> signatures, most recent first
	txns       map[string]*solana.ParsedTransaction
	delays     map[string]time.Duration
	listCalls  map[string]int
	fetchCalls int
	block      chan struct{} // when set, FetchTransaction waits on it or ctx
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		histories: map[string][]string{},
		txns:      map[string]*solana.ParsedTransaction{},
		delays:    map[string]time.Duration{},
		listCalls: map[string]int{},
	}
}

// addHistory appends a transaction to wallet's history and returns its signature.
func (f *fakeFetcher) addHistory(wallet string, t *solana.ParsedTransaction) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	sig := fmt.Sprintf("%s-%d", wallet, len(f.histories[wallet]))
	t.Signature = sig
	f.histories[wallet] = append(f.histories[wallet], sig)
	f.txns[sig] = t
	return sig
}

func (f *fakeFetcher) ListSignatures(ctx context.Context, wallet string, limit int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls[wallet]++
	sigs := f.histories[wallet]
	if len(sigs) > limit {
		sigs = sigs[:limit]
	}
	return append([]string(nil), sigs...)
}

func (f *fakeFetcher) FetchTransaction(ctx context.Context, signature string) (*solana.ParsedTransaction, bool) {
	f.mu.Lock()
	f.fetchCalls++
	delay := f.delays[signature]
	t, ok := f.txns[signature]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, false
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return t, ok
}

func (f *fakeFetcher) listCallCount(wallet string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[wallet]
}

func newTestAnalyzer(f HistoryFetcher, mutate ...func(*Options)) *Analyzer {
	opts := DefaultOptions()
	for _, m := range mutate {
		m(&opts)
	}
	return NewAnalyzer(f, opts, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAnalyze_EmptyHistory(t *testing.T) {
	f := newFakeFetcher()

	report, err := newTestAnalyzer(f).Analyze(context.Background(), "T")

	require.NoError(t, err)
	assert.True(t, report.Empty)
	assert.Empty(t, report.Links)
	assert.Empty(t, report.FundingWallet)
	assert.Equal(t, 1, f.listCallCount("T"))
	assert.Len(t, f.listCalls, 1, "correlator must not run without a funding wallet")
	require.NotNil(t, report.Graph)
	assert.Len(t, report.Graph.Nodes, 1)
	assert.Empty(t, report.Graph.Edges)
}

func TestAnalyze_NoFundingWalletSkipsCorrelation(t *testing.T) {
	f := newFakeFetcher()
	f.addHistory("T", txn([]string{"T", "B"}, solTransfer("T", "B")))

	report, err := newTestAnalyzer(f).Analyze(context.Background(), "T")

	require.NoError(t, err)
	assert.Contains(t, report.Links, "B")
	assert.Zero(t, f.listCallCount("B"))
	assert.Zero(t, report.WalletsCorrelated)
}

func TestAnalyze_EndToEnd(t *testing.T) {
	f := newFakeFetcher()
	// T's history, most recent first: F funds T, then T pays B
	f.addHistory("T", txn([]string{"F", "T"}, solTransfer("F", "T")))
	f.addHistory("T", txn([]string{"T", "B"}, solTransfer("T", "B")))
	// B was funded by F in its own history
	f.addHistory("B", txn([]string{"X", "B"}, solTransfer("X", "B")))
	f.addHistory("B", txn([]string{"F", "B"}, solTransfer("F", "B")))

	report, err := newTestAnalyzer(f).Analyze(context.Background(), "T")

	require.NoError(t, err)
	assert.Equal(t, "F", report.FundingWallet)
	require.Len(t, report.Links, 2)

	fStats := report.Links["F"]
	assert.Equal(t, 1, fStats.SOLTransferCount)
	assert.False(t, fStats.FundedBySameSource)

	bStats := report.Links["B"]
	assert.Equal(t, 1, bStats.SOLTransferCount)
	assert.True(t, bStats.FundedBySameSource)
	// one transfer, the system program via co-occurrence, and the shared funder
	assert.Equal(t, 10+5+35, bStats.Score())

	assert.Equal(t, 1, f.listCallCount("F"))
	assert.Equal(t, 1, f.listCallCount("B"))
	assert.Equal(t, 2, report.WalletsCorrelated)
	assert.Equal(t, 2, report.TransactionsResolved)

	// B clears the edge threshold, F (score 15) does not
	require.Len(t, report.Graph.Edges, 1)
	assert.Equal(t, Edge{Source: "T", Target: "B", Score: 50}, report.Graph.Edges[0])
}

func TestAnalyze_FundingTieBreakUnderConcurrency(t *testing.T) {
	f := newFakeFetcher()
	sigA := f.addHistory("T", txn([]string{"A", "T"}, solTransfer("A", "T")))
	f.addHistory("T", txn([]string{"B", "T"}, solTransfer("B", "T")))
	for i := 0; i < 10; i++ {
		f.addHistory("T", txn([]string{"C", "T"}, solTransfer("C", "T")))
	}
	// the first signature completes last
	f.delays[sigA] = 20 * time.Millisecond

	report, err := newTestAnalyzer(f, func(o *Options) { o.Concurrency = 8 }).Analyze(context.Background(), "T")

	require.NoError(t, err)
	assert.Equal(t, "A", report.FundingWallet)
	assert.Equal(t, 10, report.Links["C"].SOLTransferCount)
}

func TestAnalyze_SkipsMissingTransactions(t *testing.T) {
	f := newFakeFetcher()
	f.addHistory("T", txn([]string{"T", "B"}, solTransfer("T", "B")))
	f.histories["T"] = append([]string{"pruned"}, f.histories["T"]...)

	report, err := newTestAnalyzer(f).Analyze(context.Background(), "T")

	require.NoError(t, err)
	assert.Equal(t, 2, report.SignaturesListed)
	assert.Equal(t, 1, report.TransactionsResolved)
	assert.Contains(t, report.Links, "B")
}

func TestAnalyze_HistoryLimit(t *testing.T) {
	f := newFakeFetcher()
	for _, w := range []string{"A", "B", "C"} {
		f.addHistory("T", txn(nil, solTransfer("T", w)))
	}

	report, err := newTestAnalyzer(f, func(o *Options) { o.HistoryLimit = 2 }).Analyze(context.Background(), "T")

	require.NoError(t, err)
	assert.Len(t, report.Links, 2)
	assert.NotContains(t, report.Links, "C")
}

func TestAnalyze_CorrelationCap(t *testing.T) {
	f := newFakeFetcher()
	f.addHistory("T", txn(nil, solTransfer("F", "T")))
	for _, w := range []string{"W1", "W2", "W3", "W4"} {
		f.addHistory("T", txn(nil, solTransfer("T", w)))
		f.addHistory(w, txn(nil, solTransfer("F", w)))
	}

	report, err := newTestAnalyzer(f, func(o *Options) { o.MaxCorrelatedWallets = 3 }).Analyze(context.Background(), "T")

	require.NoError(t, err)
	assert.Equal(t, 3, report.WalletsCorrelated)
	// candidates are taken in address order: F, W1, W2
	assert.True(t, report.Links["W1"].FundedBySameSource)
	assert.True(t, report.Links["W2"].FundedBySameSource)
	assert.False(t, report.Links["W3"].FundedBySameSource)
	assert.Zero(t, f.listCallCount("W4"))
}

func TestAnalyze_CorrelationStopsAtFirstMatch(t *testing.T) {
	f := newFakeFetcher()
	f.addHistory("T", txn(nil, solTransfer("F", "T"), solTransfer("T", "B")))
	f.addHistory("B", txn(nil, solTransfer("F", "B")))
	f.addHistory("B", txn(nil, solTransfer("Y", "B")))
	f.addHistory("B", txn(nil, solTransfer("Z", "B")))

	_, err := newTestAnalyzer(f, func(o *Options) { o.Concurrency = 1 }).Analyze(context.Background(), "T")
	require.NoError(t, err)

	// T's only transaction plus B's most recent one; F has no history
	assert.Equal(t, 2, f.fetchCalls)
}

func TestAnalyze_Cancellation(t *testing.T) {
	f := newFakeFetcher()
	for i := 0; i < 20; i++ {
		f.addHistory("T", txn(nil, solTransfer("F", "T")))
	}
	f.block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := newTestAnalyzer(f).Analyze(ctx, "T")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Analyze did not return after cancellation")
	}
}

func TestAnalyze_CancelledBeforeStart(t *testing.T) {
	f := newFakeFetcher()
	f.addHistory("T", txn(nil, solTransfer("F", "T")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestAnalyzer(f).Analyze(ctx, "T")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
	assert.Zero(t, f.fetchCalls)
}
