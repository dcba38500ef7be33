package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/walletlink/service/linker"
)

func init() {
	color.NoColor = true
}

func sampleReport() *linker.Report {
	strong := linker.NewLinkStats()
	strong.SOLTransferCount = 2
	strong.SharedPrograms.Add(systemID)
	strong.FundedBySameSource = true

	weak := linker.NewLinkStats()
	weak.TokenTransferCount = 1
	weak.SharedTokenMints.Add("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	links := map[string]*linker.LinkStats{
		testSibling: strong,
		testFunder:  weak,
	}
	return &linker.Report{
		Target:               testTarget,
		FundingWallet:        testFunder,
		Links:                links,
		EdgeThreshold:        25,
		SignaturesListed:     4,
		TransactionsResolved: 3,
	}
}

func TestFormatFromFlags(t *testing.T) {
	f, err := formatFromFlags(false, ".target", false)
	require.NoError(t, err)
	assert.True(t, f.JSON, "jq implies json")

	_, err = formatFromFlags(false, ".target", true)
	require.Error(t, err)

	f, err = formatFromFlags(false, "", true)
	require.NoError(t, err)
	assert.True(t, f.DOT)
}

func TestWriteReport_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), outputFormat{}))
	out := buf.String()

	assert.Contains(t, out, "Wallet: "+testTarget)
	assert.Contains(t, out, "Funding wallet: "+testFunder)
	assert.Contains(t, out, "Signatures: 4 listed, 3 resolved")
	assert.Contains(t, out, "2 linked wallets, 1 at or above score 25")

	// ranked by score: sibling (60) before funder (20)
	assert.Less(t, strings.Index(out, testSibling), strings.Index(out, testFunder+" "))
	assert.Contains(t, out, "60")
	assert.Contains(t, out, "20")
}

func TestWriteReport_TextEmpty(t *testing.T) {
	report := &linker.Report{Target: testTarget, Links: map[string]*linker.LinkStats{}, Empty: true}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, report, outputFormat{}))
	assert.Contains(t, buf.String(), "No linked wallets found.")
	assert.Contains(t, buf.String(), "(none found)")
}

func TestWriteReport_JQ(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   string
	}{
		{
			name:   "string results print raw",
			filter: ".target",
			want:   testTarget + "\n",
		},
		{
			name:   "numbers print as json",
			filter: ".links[\"" + testSibling + "\"].score",
			want:   "60\n",
		},
		{
			name:   "computed values print as json",
			filter: "[.links | keys[]] | length",
			want:   "2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeReport(&buf, sampleReport(), outputFormat{JSON: true, JQ: tt.filter}))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteReport_BadJQ(t *testing.T) {
	var buf bytes.Buffer
	err := writeReport(&buf, sampleReport(), outputFormat{JSON: true, JQ: ".links[["})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}

func TestWriteReport_DOTBuildsMissingGraph(t *testing.T) {
	report := sampleReport()
	require.Nil(t, report.Graph)

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, report, outputFormat{DOT: true}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "graph walletlink {"))
	assert.Contains(t, out, `"`+testTarget+`" -- "`+testSibling+`"`)
	assert.NotContains(t, out, `-- "`+testFunder+`"`, "below-threshold links get no edge")
}
