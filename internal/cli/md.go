package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shiori/internal/mangadex"
	"shiori/pkg/utils"
)

// lookup is built from config on first use; tests replace it.
var lookup mangadex.Lookup

var (
	searchLimit int
	feedLimit   int
	feedLang    string
	latestLang  string
)

var mdCmd = &cobra.Command{
	Use:               "md",
	Short:             "Query MangaDex",
	PersistentPreRunE: setupLookup,
}

var mdSearchCmd = &cobra.Command{
	Use:   "search [title]",
	Short: "Search titles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := lookup.SearchResults(cmd.Context(), args[0], searchLimit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		return printJSON(cmd, res)
	},
}

var mdFeedCmd = &cobra.Command{
	Use:   "feed [mangaId]",
	Short: "List recent chapters of a title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkMangaID(args[0]); err != nil {
			return err
		}
		res, err := lookup.GetFeed(cmd.Context(), args[0], feedLimit, feedLang)
		if err != nil {
			return fmt.Errorf("feed failed: %w", err)
		}
		return printJSON(cmd, res)
	},
}

var mdLatestCmd = &cobra.Command{
	Use:   "latest [mangaId]",
	Short: "Show the highest numbered chapter",
	Long: `Resolves the highest numbered chapter from the volume/chapter aggregate,
falling back to the newest feed entry when no numbered chapter is known.
Prints null when the title has no chapters in the requested language.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkMangaID(args[0]); err != nil {
			return err
		}
		res, err := lookup.GetLatestNumberedChapter(cmd.Context(), args[0], latestLang)
		if err != nil {
			return fmt.Errorf("latest failed: %w", err)
		}
		return printJSON(cmd, res)
	},
}

func init() {
	mdSearchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	mdFeedCmd.Flags().IntVarP(&feedLimit, "limit", "n", 10, "maximum number of chapters")
	mdFeedCmd.Flags().StringVar(&feedLang, "lang", "en", "translated language")
	mdLatestCmd.Flags().StringVar(&latestLang, "lang", "en", "translated language")

	mdCmd.AddCommand(mdSearchCmd, mdFeedCmd, mdLatestCmd)
	rootCmd.AddCommand(mdCmd)
}

func setupLookup(cmd *cobra.Command, args []string) error {
	if lookup != nil {
		return nil
	}
	cfg, err := utils.Load(configPath)
	if err != nil {
		return err
	}
	utils.SetupLogger(cfg.Logging)
	client := mangadex.NewClient(cfg.MangaDex.BaseURL, cfg.MangaDex.UserAgent, cfg.MangaDex.TimeoutDuration())
	lookup = mangadex.NewService(client)
	return nil
}

func checkMangaID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("mangaId must be a UUID")
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
