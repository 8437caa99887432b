package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/echolearn/server/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "echolearn",
	Short: "EchoLearn - accessible lectures for deaf and hard-of-hearing students",
	Long: `EchoLearn transcribes lecture audio, summarizes it, generates quizzes
and translates text into sign language.

Configuration is read from the environment and an optional .env file.
Running without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads configuration, reporting failures on stderr
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		printError("invalid configuration", err)
		return nil, err
	}
	return cfg, nil
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
