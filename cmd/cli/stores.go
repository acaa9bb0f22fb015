package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/silverpoint/price-search/internal/geo"
	"github.com/silverpoint/price-search/internal/types"
)

var (
	storesNear   string
	storesOutput string
)

// storesCmd represents the stores command
var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List the fallback store table",
	Long: `List the static stores used when no live source answers. With --near the
stores are ordered by distance from the given point.`,
	Example: `  price-search stores
  price-search stores --near 40.71,-74.00 --output json`,
	Args: cobra.NoArgs,
	RunE: runStores,
}

func init() {
	rootCmd.AddCommand(storesCmd)

	storesCmd.Flags().StringVar(&storesNear, "near", "", "Order by distance from lat,lng")
	storesCmd.Flags().StringVar(&storesOutput, "output", "table", "Output format: table or json")
}

type storeRow struct {
	types.StoreLocation
	DistanceMi *float64 `json:"distanceMi,omitempty"`
}

func runStores(cmd *cobra.Command, args []string) error {
	rows := make([]storeRow, 0, len(svc.Stores))
	if storesNear != "" {
		lat, lng, err := parseLatLng(storesNear)
		if err != nil {
			return err
		}
		for _, r := range geo.RankByDistance(lat, lng, svc.Stores) {
			d := geo.Round1(r.Distance)
			rows = append(rows, storeRow{StoreLocation: r.Store, DistanceMi: &d})
		}
	} else {
		for _, s := range svc.Stores {
			rows = append(rows, storeRow{StoreLocation: s})
		}
	}

	switch strings.ToLower(storesOutput) {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case "table":
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tLAT\tLNG\tDISTANCE")
		fmt.Fprintln(w, "--\t----\t---\t---\t--------")
		for _, r := range rows {
			dist := "-"
			if r.DistanceMi != nil {
				dist = fmt.Sprintf("%.1f mi", *r.DistanceMi)
			}
			fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%s\n", r.ID, r.Name, r.Lat, r.Lng, dist)
		}
		return w.Flush()
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", storesOutput)
	}
}

func parseLatLng(s string) (float64, float64, error) {
	var lat, lng float64
	if _, err := fmt.Sscanf(strings.ReplaceAll(s, " ", ""), "%g,%g", &lat, &lng); err != nil {
		return 0, 0, fmt.Errorf("invalid coordinates %q (want lat,lng): %w", s, err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("coordinates out of range: %q", s)
	}
	return lat, lng, nil
}
