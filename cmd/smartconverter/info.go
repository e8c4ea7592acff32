package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog as Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tools.WriteMarkdown(cmd.OutOrStdout())
		},
	}
}

func (a *app) newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show how many conversions are left today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lim, closeFn, err := a.openLimiter()
			if err != nil {
				return err
			}
			defer closeFn()

			st, err := lim.Status(cmd.Context(), localClient)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st.Unlimited {
				fmt.Fprintf(out, "%s: no daily limit\n", st.Day)
				return nil
			}
			fmt.Fprintf(out, "%s: %d of %d conversions used, %d left\n", st.Day, st.Count, st.Limit, st.Remaining)
			if st.Remaining == 0 {
				fmt.Fprintln(out, limiter.LimitMessage)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of smartconverter",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "smartconverter %s\n", version)
		},
	}
}
