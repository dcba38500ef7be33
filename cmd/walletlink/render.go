package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/itchyny/gojq"
	"github.com/olekukonko/tablewriter"

	"github.com/brojonat/walletlink/service/linker"
)

// outputFormat selects how a report is written.
type outputFormat struct {
	JSON bool
	JQ   string
	DOT  bool
}

func formatFromFlags(jsonOut bool, jq string, dot bool) (outputFormat, error) {
	f := outputFormat{JSON: jsonOut || jq != "", JQ: jq, DOT: dot}
	if f.DOT && f.JSON {
		return f, fmt.Errorf("--dot cannot be combined with --json or --jq")
	}
	return f, nil
}

// writeReport renders report in the requested format.
func writeReport(w io.Writer, report *linker.Report, f outputFormat) error {
	switch {
	case f.DOT:
		graph := report.Graph
		if graph == nil {
			graph = linker.BuildGraph(report.Target, report.Links, report.EdgeThreshold)
		}
		_, err := io.WriteString(w, graph.DOT())
		return err
	case f.JQ != "":
		return writeJQ(w, report, f.JQ)
	case f.JSON:
		return writeJSON(w, report)
	default:
		renderText(w, report)
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJQ applies filter to the JSON form of v and prints each result.
func writeJQ(w io.Writer, v interface{}, filter string) error {
	code, err := compileJQ(filter)
	if err != nil {
		return err
	}

	// gojq works on plain maps and slices, so round-trip through JSON.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to decode report: %w", err)
	}

	iter := code.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := out.(error); isErr {
			return fmt.Errorf("jq filter failed: %w", err)
		}
		if s, isStr := out.(string); isStr {
			fmt.Fprintln(w, s)
			continue
		}
		if err := writeJSON(w, out); err != nil {
			return err
		}
	}
}

func compileJQ(filter string) (*gojq.Code, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return code, nil
}

// renderText prints a summary and one table row per linked wallet, ranked
// by score. Rows at or above the edge threshold are highlighted.
func renderText(w io.Writer, report *linker.Report) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "Wallet: %s\n", report.Target)
	if report.FundingWallet != "" {
		fmt.Fprintf(w, "Funding wallet: %s\n", report.FundingWallet)
	} else {
		fmt.Fprintf(w, "Funding wallet: (none found)\n")
	}
	fmt.Fprintf(w, "Signatures: %d listed, %d resolved\n", report.SignaturesListed, report.TransactionsResolved)

	if report.Empty || len(report.Links) == 0 {
		color.New(color.FgYellow).Fprintln(w, "\nNo linked wallets found.")
		return
	}
	fmt.Fprintln(w)

	strong := color.New(color.FgGreen, color.Bold).SprintFunc()
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Wallet", "Score", "SOL", "Token", "Mints", "Programs", "Same funder"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	edges := 0
	for _, link := range report.Ranked() {
		score := strconv.Itoa(link.Score)
		if link.Score >= report.EdgeThreshold {
			score = strong(score)
			edges++
		}
		funded := ""
		if link.Stats.FundedBySameSource {
			funded = "yes"
		}
		table.Append([]string{
			link.Address,
			score,
			strconv.Itoa(link.Stats.SOLTransferCount),
			strconv.Itoa(link.Stats.TokenTransferCount),
			strconv.Itoa(len(link.Stats.SharedTokenMints)),
			strconv.Itoa(len(link.Stats.SharedPrograms)),
			funded,
		})
	}
	table.Render()

	fmt.Fprintf(w, "\n%d linked wallets, %d at or above score %d\n", len(report.Links), edges, report.EdgeThreshold)
}
