package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/psychtrend/internal/config"
	"github.com/kalambet/psychtrend/internal/pipeline"
	"github.com/kalambet/psychtrend/internal/report"
)

// --- session ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage interview sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session and print its opening message",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		started, err := startSession(cmd.Context(), client)
		if err != nil {
			return err
		}
		printSuccess("Session %s", started.SessionID)
		fmt.Fprintln(cmd.OutOrStdout(), started.Message)
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session with its transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/session/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var view pipeline.SessionView
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}
		printTranscript(cmd.OutOrStdout(), view)
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session and everything recorded for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/session/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Deleted session %s", args[0])
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}

func startSession(ctx context.Context, c *apiClient) (pipeline.Started, error) {
	resp, err := c.post(ctx, "/session", nil)
	if err != nil {
		return pipeline.Started{}, err
	}
	var started pipeline.Started
	if err := decodeJSON(resp, &started); err != nil {
		return pipeline.Started{}, err
	}
	return started, nil
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <session-id> [message]",
	Short: "Send an answer, or chat interactively when no message is given",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		id := args[0]
		if len(args) > 1 {
			reply, err := sendMessage(cmd.Context(), client, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), reply)
			return nil
		}
		return chatLoop(cmd.Context(), client, id, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func sendMessage(ctx context.Context, c *apiClient, id, message string) (pipeline.Reply, error) {
	resp, err := c.post(ctx, "/chat", map[string]string{"session_id": id, "message": message})
	if err != nil {
		return pipeline.Reply{}, err
	}
	var reply pipeline.Reply
	if err := decodeJSON(resp, &reply); err != nil {
		return pipeline.Reply{}, err
	}
	return reply, nil
}

// chatLoop reads one answer per line until the session completes or input
// ends.
func chatLoop(ctx context.Context, c *apiClient, id string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		reply, err := sendMessage(ctx, c, id, line)
		if err != nil {
			return err
		}
		printReply(out, reply)
		if reply.IsComplete {
			return nil
		}
	}
}

// --- analysis ---

var analysisCmd = &cobra.Command{
	Use:   "analysis <session-id>",
	Short: "Print the raw trend analysis as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/analysis/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var a any
		if err := decodeJSON(resp, &a); err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), a)
	},
}

// --- report ---

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Print the behavioral report",
	Long: `Print the behavioral report for a session.

By default the deterministic report is printed as markdown. With --enhanced
the local LLM rewrites it in plain language first. --json prints the report
structure instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enhanced, _ := cmd.Flags().GetBool("enhanced")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		id := url.PathEscape(args[0])
		out := cmd.OutOrStdout()

		if !enhanced {
			resp, err := client.get(cmd.Context(), "/report/"+id)
			if err != nil {
				return err
			}
			var r report.Report
			if err := decodeJSON(resp, &r); err != nil {
				return err
			}
			if asJSON {
				return writeIndented(out, r)
			}
			fmt.Fprintln(out, report.Markdown(report.Fallback(r)))
			return nil
		}

		printStep("Generating report, this can take a minute...")
		resp, err := client.get(cmd.Context(), "/report-enhanced/"+id)
		if err != nil {
			return err
		}
		var e report.Enhanced
		if err := decodeJSON(resp, &e); err != nil {
			return err
		}
		if asJSON {
			return writeIndented(out, e)
		}
		if !e.LLMEnhanced {
			printWarning("LLM unavailable; showing the template report")
		}
		fmt.Fprintln(out, e.FullReportMarkdown)
		return nil
	},
}

func init() {
	reportCmd.Flags().Bool("enhanced", false, "rewrite the report with the local LLM")
	reportCmd.Flags().Bool("json", false, "print the report as JSON")
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- reset ---

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every session",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL sessions and reports. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/reset", nil)
		if err != nil {
			return err
		}
		var result struct {
			SessionsDeleted int `json:"sessions_deleted"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Deleted %d sessions", result.SessionsDeleted)
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("confirm", false, "confirm deleting all data")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "valid keys: %s\n", strings.Join(config.ValidKeys(), ", "))
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
