package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bargain-hunter/models"
	"bargain-hunter/services"
)

type searchOptions struct {
	Query    string
	ZipCode  string
	Radius   float64
	MinPrice float64
	MaxPrice float64
	Category string
	JSON     bool
}

func newSearchCommand(a *app) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the catalog and print listings ranked by bargain score",
		Example: `  bargain-hunter search --query "switch oled" --zip 80202 --radius 25
  bargain-hunter search -q iphone -z 80202 --max-price 700 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := opts.params(cmd)
			if err != nil {
				return err
			}

			p, err := a.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			result, err := p.search.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.JSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			reports := services.NewReportService(a.logger)
			reports.Print(out, result.Results, reports.Generate(result.Results))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Query, "query", "q", "", "search text matched against listing titles (required)")
	f.StringVarP(&opts.ZipCode, "zip", "z", "", "ZIP code to search around (required)")
	f.Float64VarP(&opts.Radius, "radius", "r", 25, "search radius in miles")
	f.Float64Var(&opts.MinPrice, "min-price", 0, "minimum listing price")
	f.Float64Var(&opts.MaxPrice, "max-price", 0, "maximum listing price")
	f.StringVar(&opts.Category, "category", "", "category hint")
	f.BoolVar(&opts.JSON, "json", false, "print the raw search result as JSON")
	return cmd
}

// params validates flags through the same normalisation as the HTTP API.
func (o *searchOptions) params(cmd *cobra.Command) (models.SearchParams, error) {
	raw := models.RawSearchParams{
		Query:       jsonString(o.Query),
		ZipCode:     jsonString(o.ZipCode),
		RadiusMiles: jsonNumber(o.Radius),
		Category:    jsonString(o.Category),
	}
	if cmd.Flags().Changed("min-price") {
		raw.MinPrice = jsonNumber(o.MinPrice)
	}
	if cmd.Flags().Changed("max-price") {
		raw.MaxPrice = jsonNumber(o.MaxPrice)
	}

	params, err := models.NormalizeSearchParams(raw)
	if err != nil {
		return models.SearchParams{}, fmt.Errorf("search: %w", err)
	}
	return params, nil
}

func jsonString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func jsonNumber(f float64) json.RawMessage {
	return json.RawMessage(strconv.FormatFloat(f, 'f', -1, 64))
}
