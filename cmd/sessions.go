package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fadhlirahim/llm-cli/internal/session"
	"github.com/fadhlirahim/llm-cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	sessionsLimit int
	sessionsModel string
	sessionsJSON  bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and manage stored chat sessions",
	Long: `List and manage stored chat sessions.

Session ids may be shortened to any unique prefix.

Examples:
  llm-cli sessions                    # list recent sessions
  llm-cli sessions show 3f2a9c1e      # render a session
  llm-cli sessions export 3f2a9c1e    # write 3f2a9c1e.md
  llm-cli sessions delete 3f2a9c1e
  llm-cli chat --resume 3f2a9c1e      # continue a session`,
	Args: cobra.NoArgs,
	RunE: runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <id> [path]",
	Short: "Export a session as markdown",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSessionsExport,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Maximum sessions to list")
	sessionsCmd.Flags().StringVar(&sessionsModel, "filter-model", "", "Only list sessions using this model")
	sessionsShowCmd.Flags().BoolVar(&sessionsJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

func getSessionStore() (session.Store, error) {
	cfg, err := loadRawConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Sessions.Enabled {
		return nil, fmt.Errorf("session storage is disabled in config")
	}
	return session.NewStore(session.Config{
		Enabled:  cfg.Sessions.Enabled,
		MaxCount: cfg.Sessions.MaxCount,
		Path:     cfg.Sessions.Path,
	})
}

// loadStoredSession resolves id (or a unique prefix) to a full session.
func loadStoredSession(ctx context.Context, store session.Store, id string) (*session.Session, error) {
	sess, err := store.Get(ctx, id)
	if errors.Is(err, session.ErrAmbiguousID) {
		return nil, fmt.Errorf("session id '%s' matches more than one session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session '%s' not found", id)
	}
	return sess, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := getSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.List(context.Background(), session.ListOptions{
		Model: sessionsModel,
		Limit: sessionsLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return nil
	}
	printSessionList(out, summaries, time.Now())
	return nil
}

func printSessionList(out io.Writer, summaries []session.Summary, now time.Time) {
	fmt.Fprintf(out, "%-10s %-32s %-16s %4s %7s %s\n", "ID", "SUMMARY", "MODEL", "MSGS", "TOKENS", "UPDATED")
	fmt.Fprintln(out, strings.Repeat("-", 84))
	for _, s := range summaries {
		summary := s.Summary
		if summary == "" {
			summary = "(empty)"
		}
		if len(summary) > 32 {
			summary = summary[:29] + "..."
		}
		model := s.Model
		if len(model) > 16 {
			model = model[:13] + "..."
		}
		tokens := "-"
		if s.TotalTokens > 0 {
			tokens = formatSessionCount(s.TotalTokens)
		}
		fmt.Fprintf(out, "%-10s %-32s %-16s %4d %7s %s\n",
			session.ShortID(s.ID), summary, model, s.MessageCount, tokens, formatRelativeTime(s.UpdatedAt, now))
	}
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := getSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := loadStoredSession(context.Background(), store, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if sessionsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	}

	styles := ui.NewStyles(os.Stdout)
	fmt.Fprintf(out, "Session: %s\n", sess.ID)
	fmt.Fprintf(out, "Model:   %s\n", sess.Model)
	fmt.Fprintf(out, "Created: %s\n", sess.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Updated: %s\n", sess.UpdatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Tokens:  %s (input: %d, output: %d)\n",
		formatSessionCount(sess.TotalTokens), sess.InputTokens, sess.OutputTokens)

	renderers := newRenderers(styles)
	entries := make([]ui.HistoryEntry, 0, len(sess.Messages))
	for _, m := range sess.Conversation() {
		entries = append(entries, ui.HistoryEntry{Role: string(m.Role), Content: m.Content})
	}
	ui.ShowHistory(out, styles, entries, renderers.RenderDocument)
	return nil
}

func runSessionsExport(cmd *cobra.Command, args []string) error {
	store, err := getSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := loadStoredSession(context.Background(), store, args[0])
	if err != nil {
		return err
	}

	outputPath := session.ShortID(sess.ID) + ".md"
	if len(args) > 1 {
		outputPath = args[1]
	}
	if err := os.WriteFile(outputPath, []byte(sess.ToMarkdown()), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages to %s\n", len(sess.Messages), outputPath)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, err := getSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	sess, err := loadStoredSession(ctx, store, args[0])
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session: %s\n", session.ShortID(sess.ID))
	return nil
}

// formatSessionCount formats a number in compact form (e.g., 950, 1.2k, 3M)
func formatSessionCount(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		val := float64(n) / 1000
		if val == float64(int(val)) {
			return fmt.Sprintf("%dk", int(val))
		}
		return fmt.Sprintf("%.1fk", val)
	}
	val := float64(n) / 1000000
	if val == float64(int(val)) {
		return fmt.Sprintf("%dM", int(val))
	}
	return fmt.Sprintf("%.1fM", val)
}

// formatRelativeTime returns a human-readable time relative to now
func formatRelativeTime(t, now time.Time) string {
	dur := now.Sub(t)
	switch {
	case dur < time.Minute:
		return "just now"
	case dur < time.Hour:
		return fmt.Sprintf("%dm ago", int(dur.Minutes()))
	case dur < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(dur.Hours()))
	case dur < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(dur.Hours()/24))
	default:
		return t.Local().Format("Jan 2")
	}
}
