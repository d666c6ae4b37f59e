package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/geo"

	"github.com/spf13/cobra"
)

type geoOptions struct {
	MaxMindDB string
	URL       string
	Countries string
}

// NewGeoCommand creates the geo command group.
func NewGeoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geo",
		Short: "Inspect the jurisdiction policy",
	}
	cmd.AddCommand(newGeoCheckCommand(rootOpts))
	return cmd
}

func newGeoCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &geoOptions{}

	cmd := &cobra.Command{
		Use:   "check <ip>",
		Short: "Show the country of an address and whether a connection from it would be accepted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ip := net.ParseIP(strings.TrimSpace(args[0]))
			if ip == nil {
				return fmt.Errorf("invalid ip %q", args[0])
			}

			timeout, err := time.ParseDuration(rootOpts.Timeout)
			if err != nil {
				return fmt.Errorf("invalid --timeout: %w", err)
			}

			lookup, closeFn, err := geo.Open(geo.Source{
				MaxMindDB: opts.MaxMindDB,
				HTTPURL:   opts.URL,
				Timeout:   timeout,
			})
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			country, lookupErr := lookup.Country(ctx, ip)
			if lookupErr != nil {
				fmt.Fprintf(out, "country:  unknown (%v)\n", lookupErr)
			} else {
				fmt.Fprintf(out, "country:  %s\n", country)
			}

			guard := geo.NewGuard(geo.LookupFunc(func(context.Context, net.IP) (string, error) {
				return country, lookupErr
			}), strings.Split(opts.Countries, ","))
			// a direct, unproxied connection from ip
			decision := guard.Decide(ctx, ip, ip, false)
			fmt.Fprintf(out, "decision: %s\n", decision)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.MaxMindDB, "maxmind", os.Getenv("GEO_MAXMIND_DB"), "path to a GeoIP2/GeoLite2 country database")
	cmd.Flags().StringVar(&opts.URL, "url", os.Getenv("GEO_HTTP_URL"), "ip-api style lookup URL, may contain {ip}")
	cmd.Flags().StringVar(&opts.Countries, "countries", "GR", "comma separated permitted country codes")

	return cmd
}
