package cli

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shiori/internal/manga"
	"shiori/pkg/database"
	"shiori/pkg/utils"
)

var (
	exportOut string
	importIn  string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Bulk operations on the local catalog database",
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the catalog as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCatalog()
		if err != nil {
			return err
		}
		defer db.Close()

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "-" {
			if err := os.MkdirAll(filepath.Dir(exportOut), 0o755); err != nil {
				return err
			}
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		n, err := manga.NewRepo(db).ExportCSV(cmd.Context(), w)
		if err != nil {
			return err
		}
		if exportOut != "-" {
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d titles to %s\n", n, exportOut)
		}
		return nil
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Upsert catalog entries from CSV",
	Long: `Reads a CSV with a header row. Recognised columns: title, mangadex_id, year,
cover_image_url, status. Rows whose mangadex_id already exists update that entry.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCatalog()
		if err != nil {
			return err
		}
		defer db.Close()

		var r io.Reader = cmd.InOrStdin()
		if importIn != "-" {
			f, err := os.Open(importIn)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		stats, err := manga.NewRepo(db).ImportCSV(cmd.Context(), r)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d, skipped %d\n", stats.Created, stats.Updated, stats.Skipped)
		return nil
	},
}

func init() {
	catalogExportCmd.Flags().StringVarP(&exportOut, "out", "o", "data/manga.csv", "output path, - for stdout")
	catalogImportCmd.Flags().StringVarP(&importIn, "in", "i", "data/manga.csv", "input path, - for stdin")

	catalogCmd.AddCommand(catalogExportCmd, catalogImportCmd)
	rootCmd.AddCommand(catalogCmd)
}

func openCatalog() (*sql.DB, error) {
	cfg, err := utils.Load(configPath)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
