package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and allocator defaults",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "heapctl %s (commit %s, built %s)\n", version, commit, date)

		def := alloc.DefaultOptions()
		fmt.Fprintln(w, "allocator defaults:")
		fmt.Fprintf(w, "  unit:        %d B\n", alloc.UnitSize)
		fmt.Fprintf(w, "  min growth:  %d units (%s)\n",
			def.MinGrowthUnits, humanize.IBytes(uint64(def.MinGrowthUnits)*alloc.UnitSize))
		fmt.Fprintf(w, "  max arena:   %s (limit %s)\n",
			humanize.IBytes(uint64(def.MaxArenaBytes)), humanize.IBytes(alloc.MaxArenaLimit))
		fmt.Fprintf(w, "  poison:      %#02x\n", def.Poison)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
