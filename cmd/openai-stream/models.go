package main

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LevitatingBusinessMan/openai-go"
)

func modelsCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models available to the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd, global)
			if err != nil {
				return err
			}
			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			slices.SortFunc(models, func(a, b openai.Model) int {
				return strings.Compare(a.ID, b.ID)
			})

			catalog := openai.GetModelCatalog()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tOWNER\tENDPOINTS\tNOTE")
			for _, m := range models {
				var endpoints []string
				note := ""
				if info, ok := catalog.Lookup(m.ID); ok {
					for _, e := range info.Endpoints {
						endpoints = append(endpoints, string(e))
					}
					if info.Deprecated {
						note = "deprecated"
						if info.Replacement != "" {
							note += ", use " + info.Replacement
						}
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.OwnedBy, cmp.Or(strings.Join(endpoints, ","), "-"), note)
			}
			return w.Flush()
		},
	}
}
