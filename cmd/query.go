package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fadhlirahim/llm-cli/internal/config"
	"github.com/fadhlirahim/llm-cli/internal/input"
	"github.com/fadhlirahim/llm-cli/internal/llm"
	"github.com/fadhlirahim/llm-cli/internal/session"
	"github.com/fadhlirahim/llm-cli/internal/signal"
	"github.com/fadhlirahim/llm-cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	queryFormat   string
	queryNoStream bool
	queryFiles    []string
)

var queryCmd = &cobra.Command{
	Use:   "query <message>",
	Short: "Send a single query and print the reply",
	Long: `Send a single query and print the reply.

Text output streams through the terminal renderer. JSON and markdown
output wait for the whole reply.

Examples:
  llm-cli query "what is a monad"
  llm-cli query "compare Go and Rust as a table"
  llm-cli query -f json "say hi"
  llm-cli query --file main.go:10-40 "explain this function"
  git diff | llm-cli query "write a commit message"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	AddFormatFlag(queryCmd, &queryFormat)
	AddNoStreamFlag(queryCmd, &queryNoStream)
	AddFileFlag(queryCmd, &queryFiles, "File to include, with optional line range (e.g. main.go:10-40, *.go); repeatable")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, err := parseOutputFormat(queryFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initThemeFromConfig(cfg)

	message, err := buildQueryMessage(strings.Join(args, " "), queryFiles)
	if err != nil {
		return err
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context())
	defer stop()

	sess := session.New(cfg.Model)
	sess.Clear(cfg.SystemPrompt)
	sess.AddMessage(llm.UserText(message))
	req := conversationRequest(cfg, sess)

	out := cmd.OutOrStdout()
	styles := ui.NewStyles(os.Stdout)
	stats := ui.NewSessionStats()

	var reply ui.Reply
	streamed := format == formatText && !queryNoStream
	stats.TurnStart()
	switch {
	case streamed:
		reply, err = queryStream(ctx, cmd, client, styles, stats, req)
	default:
		reply, err = queryComplete(ctx, out, client, styles, format, req)
	}
	stats.TurnEnd()
	if err != nil {
		return err
	}

	sess.AddMessage(llm.AssistantText(reply.Text))
	if reply.Usage != nil {
		sess.AddUsage(*reply.Usage)
		if !streamed {
			stats.AddUsage(reply.Usage.InputTokens, reply.Usage.OutputTokens)
		}
	}
	recordQuery(cfg, sess, cmd.ErrOrStderr())

	if showStats {
		fmt.Fprintln(cmd.ErrOrStderr(), styles.Muted.Render(stats.Render()))
	}
	return nil
}

// buildQueryMessage attaches --file contents and piped stdin to message.
func buildQueryMessage(message string, files []string) (string, error) {
	atts, err := input.ReadAttachments(files)
	if err != nil {
		return "", err
	}
	piped, err := input.ReadPiped(os.Stdin)
	if err != nil {
		return "", err
	}
	return input.BuildMessage(message, atts, piped), nil
}

// queryStream prints the reply as it arrives. The adapter records usage
// and retries in stats.
func queryStream(ctx context.Context, cmd *cobra.Command, client *llm.OpenAIClient, styles *ui.Styles, stats *ui.SessionStats, req llm.Request) (ui.Reply, error) {
	out := cmd.OutOrStdout()
	stream, err := newStreamingProvider(client).Stream(ctx, req)
	if err != nil {
		return ui.Reply{}, err
	}
	ui.ShowAssistantHeader(out, styles)
	adapter := ui.NewStreamAdapter(out, cmd.ErrOrStderr(), styles, newRenderers(styles), stats)
	return adapter.Print(ctx, stream)
}

// queryComplete waits for the whole reply and prints it in format.
func queryComplete(ctx context.Context, out io.Writer, client *llm.OpenAIClient, styles *ui.Styles, format outputFormat, req llm.Request) (ui.Reply, error) {
	var spinner *ui.Spinner
	if ui.IsTerminal(os.Stderr) {
		spinner = ui.NewSpinner(os.Stderr, styles, "Processing query...")
		spinner.Start()
	}
	resp, err := client.Complete(ctx, req)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return ui.Reply{}, err
	}

	switch format {
	case formatText:
		ui.ShowAssistantHeader(out, styles)
		printDocument(out, newRenderers(styles), resp.Text)
	case formatJSON:
		model := resp.Model
		if model == "" {
			model = req.Model
		}
		doc, err := ui.FormatJSONResponse(resp.Text, model, time.Now())
		if err != nil {
			return ui.Reply{}, err
		}
		fmt.Fprintln(out, doc)
	case formatMarkdown:
		if ui.IsTerminal(os.Stdout) {
			fmt.Fprintln(out, ui.RenderMarkdown(resp.Text, ui.TerminalWidth()))
		} else {
			fmt.Fprintln(out, strings.TrimRight(resp.Text, "\n"))
		}
	}
	return ui.Reply{Text: resp.Text, Usage: &resp.Usage}, nil
}

// recordQuery stores a finished query as a session.
func recordQuery(cfg *config.Config, sess *session.Session, warn io.Writer) {
	store := openSessionStore(cfg, warn)
	defer store.Close()

	ctx := context.Background()
	if err := store.Create(ctx, sess); err != nil {
		return
	}
	for _, m := range sess.History() {
		if err := store.AddMessage(ctx, sess.ID, m); err != nil {
			return
		}
	}
	store.Update(ctx, sess)
}
