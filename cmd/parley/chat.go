package main

import (
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/runner"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a rule set from the terminal",
	Long: `Starts a session at the given endpoint and drives it interactively.
Type "exit" or press Ctrl+C to hang up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		endPoint, _ := cmd.Flags().GetString("endpoint")
		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")
		attrs, _ := cmd.Flags().GetStringToString("attr")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
		} else {
			var opts []runner.TextHandlerOption
			if tui.IsInteractive() {
				tui.PrintBanner(os.Stdout, parley.Version)
				if render, err := tui.NewRenderer(); err == nil {
					opts = append(opts, runner.WithTextHandlerRenderer(render))
				} else {
					a.logger.Debug("markdown rendering disabled", "error", err)
				}
			}
			handler = runner.NewTextHandler(os.Stdin, os.Stdout, opts...)
		}

		r := runner.NewRunner(
			runner.WithLogger(a.logger),
			runner.WithInputHandler(handler),
			runner.WithSessionID(sessionID),
			runner.WithEndPoint(endPoint),
			runner.WithContactAttributes(attrs),
		)
		a.logger.Debug("chat session started", "session_id", sessionID, "endpoint", endPoint)
		return r.Run(cmd.Context(), a.engine)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("endpoint", "e", "", "Endpoint the session starts at (phone number or channel id)")
	chatCmd.Flags().String("session", "", "Session id (random when empty)")
	chatCmd.Flags().Bool("json", false, "Read and write JSON lines instead of text")
	chatCmd.Flags().StringToString("attr", nil, "Contact attributes as key=value pairs")
	_ = chatCmd.MarkFlagRequired("endpoint")
}
