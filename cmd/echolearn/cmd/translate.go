package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/echolearn/server/internal/signlang"
)

var dictionaryPath string

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Translate text with the local sign dictionary",
	Long: `Translate text into sign tokens and avatar instructions using only the
local dictionary, and print the result as JSON. No network access is needed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringVar(&dictionaryPath, "dictionary", "", "YAML gesture dictionary (default: built-in)")
	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	dict := signlang.DefaultDictionary()
	if dictionaryPath != "" {
		loaded, err := signlang.LoadDictionary(dictionaryPath)
		if err != nil {
			printError("failed to load dictionary", err)
			return err
		}
		dict = loaded
	}

	result := signlang.NewTranslator(dict).Translate(strings.Join(args, " "))

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		printError("failed to encode result", err)
		return err
	}
	return nil
}
