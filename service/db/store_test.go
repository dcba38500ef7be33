package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/walletlink/service/linker"
)

func sampleReport(target, funder string) *linker.Report {
	links := map[string]*linker.LinkStats{}
	b := linker.NewLinkStats()
	b.SOLTransferCount = 2
	b.SharedPrograms.Add("11111111111111111111111111111111")
	b.FundedBySameSource = funder != ""
	links["B"] = b

	return &linker.Report{
		Target:        target,
		FundingWallet: funder,
		Links:         links,
		Graph:         linker.BuildGraph(target, links, 25),
		EdgeThreshold: 25,
		CompletedAt:   time.Now().UTC(),
	}
}

func TestSaveAndGetReport(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()

	saved, err := store.SaveReport(ctx, sampleReport("T", "F"))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.Equal(t, 1, saved.LinkCount)
	assert.Equal(t, 1, saved.EdgeCount)
	assert.WithinDuration(t, time.Now(), saved.CreatedAt, 5*time.Second)

	got, err := store.GetReport(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Target)
	require.NotNil(t, got.FundingWallet)
	assert.Equal(t, "F", *got.FundingWallet)
	require.Contains(t, got.Report.Links, "B")
	assert.Equal(t, 2, got.Report.Links["B"].SOLTransferCount)
	assert.Equal(t, 10*2+5+35, got.Report.Links["B"].Score())
}

func TestSaveReport_WithoutFundingWallet(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	saved, err := store.SaveReport(context.Background(), sampleReport("T", ""))
	require.NoError(t, err)
	assert.Nil(t, saved.FundingWallet)

	got, err := store.GetReport(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FundingWallet)
}

func TestGetReport_NotFound(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()

	_, err := store.GetReport(context.Background(), -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListReports(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()
	first, err := store.SaveReport(ctx, sampleReport("T", "F"))
	require.NoError(t, err)
	second, err := store.SaveReport(ctx, sampleReport("T", ""))
	require.NoError(t, err)
	_, err = store.SaveReport(ctx, sampleReport("OTHER", ""))
	require.NoError(t, err)

	reports, err := store.ListReports(ctx, "T", 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, second.ID, reports[0].ID)
	assert.Equal(t, first.ID, reports[1].ID)

	limited, err := store.ListReports(ctx, "T", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := store.ListReports(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
