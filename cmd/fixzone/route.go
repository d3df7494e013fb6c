package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fixzone/fixzone-portal/internal/domain/guard"
)

type routeResult struct {
	Path     string `json:"path"`
	Decision string `json:"decision"`
	Area     string `json:"area,omitempty"`
	Layout   string `json:"layout,omitempty"`
	Location string `json:"redirect_to,omitempty"`
}

func newRouteCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Inspect portal routing",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check PATH...",
		Short: "Show what the portal does with each path for the saved session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *cliSession) error {
				policy := guard.DefaultPolicy()
				s.store.RestoreSession(ctx)
				st := s.store.State()

				results := make([]routeResult, 0, len(args))
				for _, p := range args {
					d := policy.Decide(guard.Input{State: st, Path: p})
					results = append(results, routeResult{
						Path:     p,
						Decision: string(d.Kind),
						Area:     d.Area,
						Layout:   string(d.Layout),
						Location: d.Location,
					})
				}
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), results)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PATH\tDECISION\tDETAIL")
				for _, r := range results {
					detail := r.Layout
					if r.Location != "" {
						detail = "-> " + r.Location
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Path, r.Decision, detail)
				}
				return tw.Flush()
			})
		},
	})
	return cmd
}
