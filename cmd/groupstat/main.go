// Command groupstat inspects and validates structure-finder catalog count
// files without touching particle data: it builds the offset index from the
// counts alone and reports group boundaries, subhalo spans, and
// inconsistencies against the snapshot totals.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/arkordt/scida/halos"
)

// catalogFile is the TOML layout consumed by all subcommands.
type catalogFile struct {
	GroupNsubs []int64 `toml:"group_nsubs"`
	Species    []struct {
		Name          string  `toml:"name"`
		Total         int64   `toml:"total"`
		GroupCounts   []int64 `toml:"group_counts"`
		SubhaloCounts []int64 `toml:"subhalo_counts"`
	} `toml:"species"`
}

var logger = level.NewFilter(log.NewLogfmtLogger(os.Stderr), level.AllowInfo())

var rootCmd = &cobra.Command{
	Use:   "groupstat",
	Short: "Inspect halo catalog particle counts",
	Long: "Groupstat builds the group/subhalo offset index from a catalog count file " +
		"and reports boundaries and inconsistencies, without reading any particle data.",
	SilenceUsage: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate <catalog.toml>",
	Short: "Check catalog counts for internal consistency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		for _, name := range ix.SpeciesNames() {
			sp, _ := ix.Species(name)
			level.Info(logger).Log("species", name, "groups", sp.NumGroups(),
				"subhalos", sp.NumSubhalos(), "particles", sp.TotalParticles())
		}
		fmt.Println("catalog OK")
		return nil
	},
}

var offsetsCmd = &cobra.Command{
	Use:   "offsets <catalog.toml>",
	Short: "Print per-species group offset tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetString("species")
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		for _, name := range ix.SpeciesNames() {
			if only != "" && name != only {
				continue
			}
			sp, _ := ix.Species(name)
			fmt.Printf("species %s\n", name)
			fmt.Printf("  group offsets:   %v\n", sp.GroupOffsets())
			fmt.Printf("  subhalo offsets: %v\n", sp.SubhaloOffsets())
		}
		return nil
	},
}

var haloCmd = &cobra.Command{
	Use:   "halo <catalog.toml> <group-id>",
	Short: "Print one group's particle ranges and subhalo spans",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parsing group id %q: %w", args[1], err)
		}
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		for _, name := range ix.SpeciesNames() {
			sp, _ := ix.Species(name)
			lo, hi, err := sp.GroupRange(id)
			if err != nil {
				return err
			}
			fmt.Printf("species %s: particles [%d, %d) (%d total)\n", name, lo, hi, hi-lo)
			for s := int64(0); s < sp.NumSubhalos(); s++ {
				if g, _ := sp.GroupOfSubhalo(s); g != id {
					continue
				}
				slo, shi, _ := sp.SubhaloRange(s)
				fmt.Printf("  subhalo %d: particles [%d, %d)\n", s, slo, shi)
			}
		}
		return nil
	},
}

// loadIndex parses a catalog count file and builds the offset index.
func loadIndex(path string) (*halos.Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	var cf catalogFile
	if err := toml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}

	cat := &halos.Catalog{GroupNsubs: cf.GroupNsubs}
	for _, sc := range cf.Species {
		cat.Species = append(cat.Species, halos.SpeciesCounts{
			Species:        sc.Name,
			GroupCounts:    sc.GroupCounts,
			SubhaloCounts:  sc.SubhaloCounts,
			TotalParticles: sc.Total,
		})
	}
	return halos.BuildIndex(cat)
}

func main() {
	offsetsCmd.Flags().String("species", "", "limit output to one species")
	rootCmd.AddCommand(validateCmd, offsetsCmd, haloCmd)
	if err := rootCmd.Execute(); err != nil {
		level.Error(logger).Log("err", err)
		os.Exit(1)
	}
}
