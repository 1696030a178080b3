package cmd

import (
	"encoding/json"
	"fmt"

	"video-wizard/internal/i18n"
	"video-wizard/internal/wizard"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the wizard steps, voices and music tracks",
	Long:  `Print the localized step list together with the voice and music catalog as JSON.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("lang")

		translator, err := i18n.New(lang)
		if err != nil {
			return fmt.Errorf("could not load translations: %w", err)
		}

		result, err := json.MarshalIndent(wizard.NewCatalog(translator.Localizer(translator.Match(lang))), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format catalog: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(result))
		return nil
	},
}

func init() {
	catalogCmd.Flags().String("lang", "vi", "catalog language (vi or en)")
	rootCmd.AddCommand(catalogCmd)
}
