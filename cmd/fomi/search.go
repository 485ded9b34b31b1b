// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/catalog"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/search"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/session"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the restaurant catalog",
	Long: `Search matches restaurant names and neighborhoods in the local catalog.
When a specific name returns too few local results, the places provider is
consulted once; a new place is stored in the catalog unless it duplicates
an existing record.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Float64("lat", 0, "caller latitude (enables distances)")
	searchCmd.Flags().Float64("lng", 0, "caller longitude")
	searchCmd.Flags().String("cuisine", "", "filter by cuisine")
	searchCmd.Flags().Int("max-price", 0, "filter by maximum price level (1-4)")
	searchCmd.Flags().Float64("min-rating", 0, "filter by minimum rating")
	searchCmd.Flags().String("sort", "relevance", "sort by relevance, distance, rating, or price")
	searchCmd.Flags().Int("page", 1, "result page")
	searchCmd.Flags().String("city", "", "city assumed for provider places without one")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	sortFlag, _ := cmd.Flags().GetString("sort")
	sortKey, err := catalog.ParseSort(sortFlag)
	if err != nil {
		return err
	}

	req := search.Request{Query: strings.Join(args, " "), Sort: sortKey}
	req.Filters.Cuisine, _ = cmd.Flags().GetString("cuisine")
	req.Filters.MaxPriceLevel, _ = cmd.Flags().GetInt("max-price")
	req.Filters.MinRating, _ = cmd.Flags().GetFloat64("min-rating")
	req.Page, _ = cmd.Flags().GetInt("page")
	req.CityHint, _ = cmd.Flags().GetString("city")
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		req.Near = &types.GeoPoint{Lat: lat, Lng: lng}
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// One CLI invocation is one session.
	sess := session.New(cfg.Search.SessionCacheSize)
	resp, err := a.orchestrator().Search(cmd.Context(), sess, req)
	if err != nil {
		return eris.Wrap(err, "search")
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return search.FormatJSON(resp, os.Stdout)
	}
	search.FormatTable(resp, os.Stdout)
	return nil
}
