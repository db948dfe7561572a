package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldscope/fieldrec-api/internal/database"
	"github.com/fieldscope/fieldrec-api/internal/services/library"
	"github.com/fieldscope/fieldrec-api/internal/services/markers"
	"github.com/fieldscope/fieldrec-api/internal/services/sidecar"
	"github.com/fieldscope/fieldrec-api/pkg/config"
)

var scanRoot string

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the recording library",
	Long: `Walk the library root, fingerprint every WAV file and refresh the
catalog without starting the server.

New recordings are added to the catalog, renamed files keep their
identity, replaced files get fresh fingerprints and cue points found in
the files are imported as markers.

Example:
  fieldrec-api scan
  fieldrec-api scan --root /mnt/recordings`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanRoot, "root", "", "library root (overrides config)")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	root := cfg.Library.Root
	if scanRoot != "" {
		root = scanRoot
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	sc := sidecar.NewStore(cfg.Library.SidecarPath)
	if err := sc.Load(); err != nil {
		return fmt.Errorf("failed to load sidecar: %w", err)
	}

	markerService := markers.NewService(markers.NewRepository(db.DB))
	libraryService := library.NewService(
		library.NewRepository(db.DB),
		markerService,
		nil,
		sc,
		library.Options{
			Root:        root,
			Extensions:  cfg.Library.Extensions,
			Recursive:   cfg.Library.Recursive,
			DefaultTags: cfg.Tags.Defaults,
		},
	)

	fmt.Printf("Scanning %s\n", root)

	result, err := libraryService.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned:   %d\n", result.Scanned)
	fmt.Fprintf(out, "Added:     %d\n", result.Added)
	fmt.Fprintf(out, "Updated:   %d\n", result.Updated)
	fmt.Fprintf(out, "Unchanged: %d\n", result.Unchanged)
	fmt.Fprintf(out, "Skipped:   %d\n", result.Skipped)
	fmt.Fprintf(out, "Cues:      %d\n", result.Cues)

	return nil
}
