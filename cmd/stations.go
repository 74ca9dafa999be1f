package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vzahanych/forecast-history/internal/station"
)

func stationsCmd() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "stations",
		Short: "List the stations by region",
		RunE: func(cmd *cobra.Command, args []string) error {
			regions := station.Regions()
			if region != "" {
				stations := station.Stations(region)
				if len(stations) == 0 {
					return fmt.Errorf("%w: region %q", station.ErrUnknownStation, region)
				}
				regions = []station.Region{{Name: region, Stations: stations}}
			}

			rows := [][]string{{"地域", "観測地点", "URL"}}
			for _, r := range regions {
				for _, st := range r.Stations {
					rows = append(rows, []string{r.Name, st.Name, st.Segment})
				}
			}
			return writeColumns(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "only list stations of this region")
	return cmd
}
