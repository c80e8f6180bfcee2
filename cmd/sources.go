package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/topicworks/digest-cli/internal/config"
)

var sourcesAll bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and their fetch methods",
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := config.LoadSources(cfg.Sources.File)
		if err != nil {
			return eris.Wrap(err, "load sources")
		}
		merged := base.Sources
		if cfg.Sources.UserFile != "" {
			user, err := config.LoadSources(cfg.Sources.UserFile)
			if err != nil {
				return eris.Wrap(err, "load user sources")
			}
			merged = config.MergeSources(merged, user.Sources)
		}

		for _, src := range merged {
			if !src.Enabled && !sourcesAll {
				continue
			}
			state := "enabled"
			if !src.Enabled {
				state = "disabled"
			}
			kinds := make([]string, len(src.Methods))
			for i, m := range src.Methods {
				kinds[i] = string(m.Kind)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-8s  %s\n", src.ID, state, strings.Join(kinds, " -> "))
		}
		return nil
	},
}

func init() {
	sourcesCmd.Flags().BoolVar(&sourcesAll, "all", false, "include disabled sources")
	rootCmd.AddCommand(sourcesCmd)
}
