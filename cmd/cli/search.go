package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/silverpoint/price-search/internal/search"
)

var (
	searchLat    float64
	searchLng    float64
	searchOutput string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search nearby prices for an item",
	Long: `Search nearby store prices for an item. Coordinates are optional; both --lat
and --lng must be given for a location-aware search. An empty term searches
for "item".

Output can be formatted as a human-readable table (default) or JSON.`,
	Example: `  price-search search milk
  price-search search "whole milk" --lat 34.05 --lng -118.24
  price-search search eggs --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Float64Var(&searchLat, "lat", 0, "Latitude of the search point")
	searchCmd.Flags().Float64Var(&searchLng, "lng", 0, "Longitude of the search point")
	searchCmd.Flags().StringVar(&searchOutput, "output", "table", "Output format: table or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := search.Query{}
	if len(args) > 0 {
		q.Term = args[0]
	}

	latSet := cmd.Flags().Changed("lat")
	lngSet := cmd.Flags().Changed("lng")
	if latSet != lngSet {
		return fmt.Errorf("--lat and --lng must be given together")
	}
	if latSet {
		if searchLat < -90 || searchLat > 90 || searchLng < -180 || searchLng > 180 {
			return fmt.Errorf("coordinates out of range: %v,%v", searchLat, searchLng)
		}
		lat, lng := searchLat, searchLng
		q.Lat, q.Lng = &lat, &lng
	}

	out := svc.Search.Run(cmd.Context(), q)

	switch strings.ToLower(searchOutput) {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(out.Results)
	case "table":
		outputSearchTable(cmd.OutOrStdout(), out)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", searchOutput)
	}
}

func outputSearchTable(out io.Writer, o search.Outcome) {
	if len(o.Results) == 0 {
		fmt.Fprintf(out, "No offers found for: %s\n", o.Term)
		return
	}

	fmt.Fprintf(out, "Results for %q (source: %s)\n\n", o.Term, o.Strategy)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tSTORE\tPRICE\tDISTANCE\tIN STOCK")
	fmt.Fprintln(w, "-------\t-----\t-----\t--------\t--------")

	for _, r := range o.Results {
		stock := "yes"
		if !r.InStock {
			stock = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t$%s\t%.1f mi\t%s\n", r.ProductName, r.StoreName, r.Price, r.DistanceMi, stock)
	}

	w.Flush()
}
