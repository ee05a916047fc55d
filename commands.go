package vmr

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewCommand creates a Cobra command tree for browsing and downloading
// vascular models. The returned command can serve as a root command or be
// added to a parent CLI.
//
// Commands provided:
//   - vmr list [--limit N] [filter flags]
//   - vmr search [filter flags]
//   - vmr info <name>
//   - vmr download <name>... [--output DIR] [--extract] [--with-simulations] [--with-pdf]
//   - vmr download-simulations <name> [--output DIR]
//   - vmr summary [filter flags]
//   - vmr refresh
//   - vmr cache-info
//   - vmr cache-clear
//
// Global flags: --json, --quiet, --cache-dir
func NewCommand(cfg Config, opts ...ClientOption) *cobra.Command {
	var (
		jsonOutput bool
		quiet      bool
		cacheDir   string
	)

	// Client will be created in PersistentPreRunE
	var cli Client

	cmd := &cobra.Command{
		Use:   "vmr",
		Short: "Browse and download vascular models",
		Long:  "Query the Vascular Model Repository catalog and download model archives, simulation results, and datasets.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip client creation for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			if cacheDir != "" {
				cfg.CacheDir = cacheDir
			}

			var err error
			cli, err = NewClient(cfg, opts...)
			if err != nil {
				return fmt.Errorf("failed to initialize client: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Override the catalog cache directory")

	// Add subcommands
	cmd.AddCommand(listCmd(&cli, &jsonOutput))
	cmd.AddCommand(searchCmd(&cli, &jsonOutput))
	cmd.AddCommand(infoCmd(&cli, &jsonOutput))
	cmd.AddCommand(downloadCmd(&cli, &quiet))
	cmd.AddCommand(downloadSimulationsCmd(&cli, &quiet))
	cmd.AddCommand(summaryCmd(&cli, &jsonOutput))
	cmd.AddCommand(refreshCmd(&cli, &quiet))
	cmd.AddCommand(cacheInfoCmd(&cli, &jsonOutput))
	cmd.AddCommand(cacheClearCmd(&cli, &quiet))

	return cmd
}

// addFilterFlags registers the shared model filter flags and returns a
// builder that assembles a FilterSet after flag parsing.
func addFilterFlags(cmd *cobra.Command) func() FilterSet {
	var (
		name           string
		anatomy        string
		species        string
		disease        string
		sex            string
		creator        string
		ageMin         float64
		ageMax         float64
		hasSimulations bool
		hasMeshes      bool
		hasImages      bool
	)

	cmd.Flags().StringVar(&name, "name", "", "Filter by name substring")
	cmd.Flags().StringVar(&anatomy, "anatomy", "", "Filter by anatomical region")
	cmd.Flags().StringVar(&species, "species", "", "Filter by species (Human/Animal, or H/A)")
	cmd.Flags().StringVar(&disease, "disease", "", "Filter by disease substring")
	cmd.Flags().StringVar(&sex, "sex", "", "Filter by sex")
	cmd.Flags().StringVar(&creator, "creator", "", "Filter by model creator substring")
	cmd.Flags().Float64Var(&ageMin, "age-min", 0, "Minimum age in years (inclusive)")
	cmd.Flags().Float64Var(&ageMax, "age-max", 0, "Maximum age in years (inclusive)")
	cmd.Flags().BoolVar(&hasSimulations, "has-simulations", false, "Only models with simulation results")
	cmd.Flags().BoolVar(&hasMeshes, "has-meshes", false, "Only models with meshes")
	cmd.Flags().BoolVar(&hasImages, "has-images", false, "Only models with images")

	return func() FilterSet {
		f := FilterSet{
			Name:         name,
			Anatomy:      anatomy,
			Species:      species,
			Disease:      disease,
			Sex:          sex,
			ModelCreator: creator,
		}
		if cmd.Flags().Changed("age-min") {
			f.AgeMin = &ageMin
		}
		if cmd.Flags().Changed("age-max") {
			f.AgeMax = &ageMax
		}
		t := true
		if hasSimulations {
			f.HasSimulations = &t
		}
		if hasMeshes {
			f.HasMeshes = &t
		}
		if hasImages {
			f.HasImages = &t
		}
		return f
	}
}

func listCmd(cli *Client, jsonOutput *bool) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models in the catalog",
		Long:  "List catalog models, optionally narrowed by filter flags.",
		Args:  cobra.NoArgs,
	}

	filter := addFilterFlags(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit the number of models shown (0 = no limit)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		models, err := (*cli).Search(cmd.Context(), filter())
		if err != nil {
			return err
		}
		if limit > 0 && len(models) > limit {
			models = models[:limit]
		}
		return outputModels(cmd.OutOrStdout(), models, *jsonOutput)
	}

	return cmd
}

func searchCmd(cli *Client, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the catalog",
		Long:  "Search catalog models by filter flags. All filters combine with logical AND.",
		Args:  cobra.NoArgs,
	}

	filter := addFilterFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		models, err := (*cli).Search(cmd.Context(), filter())
		if err != nil {
			return err
		}
		return outputModels(cmd.OutOrStdout(), models, *jsonOutput)
	}

	return cmd
}

func infoCmd(cli *Client, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show model details",
		Long:  "Show detailed information about one model, including its simulation results.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := (*cli).GetModel(ctx, args[0])
			if err != nil {
				return err
			}

			sims, err := (*cli).Simulations(ctx, args[0])
			if err != nil {
				return err
			}

			return outputModelDetail(cmd.OutOrStdout(), m, sims, *jsonOutput)
		},
	}
}

func downloadCmd(cli *Client, quiet *bool) *cobra.Command {
	var (
		output          string
		extract         bool
		withSimulations bool
		withPDF         bool
	)

	cmd := &cobra.Command{
		Use:   "download <name>...",
		Short: "Download model archives",
		Long:  "Download one or more model archives. Failures of individual models do not abort the rest.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var opts []DownloadOption
			if extract {
				opts = append(opts, WithExtract())
			}
			if withSimulations {
				opts = append(opts, WithSimulations())
			}
			if withPDF {
				opts = append(opts, WithPDF())
			}
			if !*quiet {
				opts = append(opts, WithProgress(progressPrinter(cmd.OutOrStdout())))
			}

			report, err := (*cli).DownloadBatch(ctx, args, output, opts...)
			if err != nil {
				return err
			}

			for _, item := range report.Items {
				if item.Err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", item.Name, item.Err)
				} else if !*quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: saved to %s\n", item.Name, item.Path)
				}
			}

			if report.AllFailed() {
				return fmt.Errorf("%w: all %d downloads failed", ErrDownloadFailed, report.Failed())
			}
			if !*quiet && report.Failed() > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d downloads failed\n", report.Failed(), len(report.Items))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&extract, "extract", false, "Extract zip archives after download")
	cmd.Flags().BoolVar(&withSimulations, "with-simulations", false, "Also download simulation result archives")
	cmd.Flags().BoolVar(&withPDF, "with-pdf", false, "Also download the model's PDF documentation")
	return cmd
}

func downloadSimulationsCmd(cli *Client, quiet *bool) *cobra.Command {
	var (
		output  string
		extract bool
	)

	cmd := &cobra.Command{
		Use:   "download-simulations <name>",
		Short: "Download a model's simulation results",
		Long:  "Download every simulation result archive belonging to a model. Individual failures do not abort the rest.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var opts []DownloadOption
			if extract {
				opts = append(opts, WithExtract())
			}
			if !*quiet {
				opts = append(opts, WithProgress(progressPrinter(cmd.OutOrStdout())))
			}

			report, err := (*cli).DownloadSimulations(ctx, args[0], output, opts...)
			if err != nil {
				return err
			}

			if len(report.Items) == 0 {
				if !*quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "No simulation results for %s\n", args[0])
				}
				return nil
			}

			for _, item := range report.Items {
				if item.Err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", item.Name, item.Err)
				} else if !*quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: saved to %s\n", item.Name, item.Path)
				}
			}

			if report.AllFailed() {
				return fmt.Errorf("%w: all %d downloads failed", ErrDownloadFailed, report.Failed())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&extract, "extract", false, "Extract zip archives after download")
	return cmd
}

func summaryCmd(cli *Client, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show catalog statistics",
		Long:  "Show aggregate statistics over the catalog, optionally narrowed by filter flags.",
		Args:  cobra.NoArgs,
	}

	filter := addFilterFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		s, err := (*cli).Summary(cmd.Context(), filter())
		if err != nil {
			return err
		}
		return outputSummary(cmd.OutOrStdout(), s, *jsonOutput)
	}

	return cmd
}

func refreshCmd(cli *Client, quiet *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the catalog cache",
		Long:  "Fetch a fresh catalog snapshot from the repository, replacing the local cache.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := (*cli).Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if snap.Stale {
				fmt.Fprintf(cmd.OutOrStdout(), "Refresh failed; keeping cached catalog from %s\n",
					snap.FetchedAt.Format("2006-01-02 15:04:05"))
				return nil
			}
			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Catalog refreshed: %d models, %d simulation results\n",
					len(snap.Models), len(snap.Simulations))
			}
			return nil
		},
	}
}

func cacheInfoCmd(cli *Client, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "cache-info",
		Short: "Show catalog cache status",
		Long:  "Show the location, age, and staleness of the local catalog cache.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := (*cli).CacheInfo(cmd.Context())
			if err != nil {
				return err
			}
			return outputCacheStatus(cmd.OutOrStdout(), status, *jsonOutput)
		},
	}
}

func cacheClearCmd(cli *Client, quiet *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "cache-clear",
		Short: "Remove the cached catalog",
		Long:  "Delete the locally cached catalog snapshot. The next command fetches a fresh one.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*cli).ClearCache(cmd.Context()); err != nil {
				return err
			}
			if !*quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog cache cleared")
			}
			return nil
		},
	}
}

// Output helpers

func outputModels(w io.Writer, models []Model, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	if len(models) == 0 {
		fmt.Fprintln(w, "No models found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tANATOMY\tDISEASE\tSPECIES\tAGE\tSIZE")
	for _, m := range models {
		age := "-"
		if m.Age != nil {
			age = fmt.Sprintf("%g", *m.Age)
		}
		size := "-"
		if m.FileSize > 0 {
			size = formatSize(m.FileSize)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Name,
			orDash(m.Anatomy),
			orDash(m.Disease),
			orDash(m.Species),
			age,
			size,
		)
	}
	return tw.Flush()
}

func outputModelDetail(w io.Writer, m Model, sims []SimulationResult, asJSON bool) error {
	if asJSON {
		detail := struct {
			Model
			SimulationResults []SimulationResult `json:"simulation_results,omitempty"`
		}{Model: m, SimulationResults: sims}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}

	fmt.Fprintf(w, "Name:         %s\n", m.Name)
	if m.LegacyName != "" {
		fmt.Fprintf(w, "Legacy name:  %s\n", m.LegacyName)
	}
	fmt.Fprintf(w, "Anatomy:      %s\n", orDash(m.Anatomy))
	fmt.Fprintf(w, "Disease:      %s\n", orDash(m.Disease))
	fmt.Fprintf(w, "Species:      %s\n", orDash(m.Species))
	if m.Animal != "" {
		fmt.Fprintf(w, "Animal:       %s\n", m.Animal)
	}
	fmt.Fprintf(w, "Sex:          %s\n", orDash(m.Sex))
	if m.Age != nil {
		fmt.Fprintf(w, "Age:          %g\n", *m.Age)
	} else {
		fmt.Fprintf(w, "Age:          -\n")
	}
	if m.Procedure != "" {
		fmt.Fprintf(w, "Procedure:    %s\n", m.Procedure)
	}
	if m.FileSize > 0 {
		fmt.Fprintf(w, "Archive size: %s\n", formatSize(m.FileSize))
	}
	if m.DOI != "" {
		fmt.Fprintf(w, "DOI:          %s\n", m.DOI)
	}
	if m.ModelCreator != "" {
		fmt.Fprintf(w, "Creator:      %s\n", m.ModelCreator)
	}
	if m.DateAdded != nil {
		fmt.Fprintf(w, "Added:        %s\n", m.DateAdded.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "Download:     %s\n", m.DownloadURL())

	if len(sims) > 0 {
		fmt.Fprintln(w, "\nSimulation results:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  FILE\tFIDELITY\tMETHOD\tTYPE\tSIZE")
		for _, s := range sims {
			size := "-"
			if s.FileSize > 0 {
				size = formatSize(s.FileSize)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
				s.FullFilename,
				orDash(s.Fidelity),
				orDash(s.Method),
				orDash(s.ResultsType),
				size,
			)
		}
		return tw.Flush()
	}
	return nil
}

func outputSummary(w io.Writer, s Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "Models:             %d\n", s.Total)
	fmt.Fprintf(w, "With simulations:   %d\n", s.WithSimulations)
	fmt.Fprintf(w, "With meshes:        %d\n", s.WithMeshes)
	fmt.Fprintf(w, "With segmentations: %d\n", s.WithSegmentations)
	if s.TotalSizeBytes > 0 {
		fmt.Fprintf(w, "Total archive size: %s\n", formatSize(s.TotalSizeBytes))
	}
	if s.Ages != nil {
		fmt.Fprintf(w, "Ages:               %.1f-%.1f (mean %.1f, %d known)\n",
			s.Ages.Min, s.Ages.Max, s.Ages.Mean, s.Ages.Count)
	}

	printCounts := func(label string, counts map[string]int) {
		if len(counts) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s:\n", label)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, k := range sortedKeys(counts) {
			fmt.Fprintf(tw, "  %s\t%d\n", k, counts[k])
		}
		tw.Flush()
	}

	printCounts("By species", s.BySpecies)
	printCounts("By anatomy", s.ByAnatomy)
	printCounts("By disease", s.ByDisease)
	return nil
}

func outputCacheStatus(w io.Writer, status CacheStatus, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintf(w, "Path:    %s\n", status.Path)
	if !status.Exists {
		fmt.Fprintln(w, "Status:  no cached catalog")
		return nil
	}

	fmt.Fprintf(w, "Fetched: %s\n", status.FetchedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Age:     %s\n", formatDuration(status.Age))
	fmt.Fprintf(w, "Size:    %s\n", formatSize(status.SizeBytes))
	if status.Stale {
		fmt.Fprintf(w, "Status:  stale (TTL %s); run refresh to update\n", formatDuration(status.TTL))
	} else {
		fmt.Fprintf(w, "Status:  fresh (TTL %s)\n", formatDuration(status.TTL))
	}
	return nil
}

// progressPrinter returns a progress callback that renders a single-line
// progress display, overwriting itself as bytes arrive.
func progressPrinter(w io.Writer) func(DownloadProgress) {
	var lastFile string
	return func(p DownloadProgress) {
		if p.Filename != lastFile {
			if lastFile != "" {
				fmt.Fprintln(w)
			}
			lastFile = p.Filename
		}
		if p.BytesTotal > 0 {
			pct := float64(p.BytesReceived) / float64(p.BytesTotal) * 100
			fmt.Fprintf(w, "\r\x1b[K%s: %s / %s (%.0f%%)",
				p.Filename, formatSize(p.BytesReceived), formatSize(p.BytesTotal), pct)
		} else {
			fmt.Fprintf(w, "\r\x1b[K%s: %s", p.Filename, formatSize(p.BytesReceived))
		}
		if p.BytesTotal > 0 && p.BytesReceived >= p.BytesTotal {
			fmt.Fprintln(w)
			lastFile = ""
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatDuration formats a duration as human-readable text (e.g., "5s", "2m 30s", "1h 5m").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)

	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	if hours > 0 {
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if mins > 0 {
		if secs > 0 {
			return fmt.Sprintf("%dm %ds", mins, secs)
		}
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}
