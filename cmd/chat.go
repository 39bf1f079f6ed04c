package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fadhlirahim/llm-cli/internal/clipboard"
	"github.com/fadhlirahim/llm-cli/internal/config"
	"github.com/fadhlirahim/llm-cli/internal/input"
	"github.com/fadhlirahim/llm-cli/internal/llm"
	"github.com/fadhlirahim/llm-cli/internal/session"
	"github.com/fadhlirahim/llm-cli/internal/signal"
	"github.com/fadhlirahim/llm-cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	chatMultiline bool
	chatNoStream  bool
	chatResume    string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session. Replies stream as they arrive;
tables and code blocks appear once they are complete.

Examples:
  llm-cli chat
  llm-cli chat "hello"                 # send an opening message
  llm-cli chat --multiline             # compose multi-line messages
  llm-cli chat --resume 3f2a           # continue a stored session

Commands:
  exit/quit     - End the chat session
  clear         - Clear the screen
  help          - Show help
  history       - Show current session history
  save          - Save conversation to file
  copy          - Copy the last reply to the clipboard
  paste         - Send the clipboard contents as a message
  model <name>  - Change the model`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

// chatCommandNames are offered as Tab completions at the prompt.
var chatCommandNames = []string{"exit", "quit", "clear", "help", "history", "save", "copy", "paste", "model "}

func init() {
	addChatFlags(chatCmd)
	chatCmd.Flags().StringVar(&chatResume, "resume", "", "Resume a stored session by id or id prefix")
	rootCmd.AddCommand(chatCmd)
}

func addChatFlags(cmd *cobra.Command) {
	AddMultilineFlag(cmd, &chatMultiline)
	AddNoStreamFlag(cmd, &chatNoStream)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initThemeFromConfig(cfg)

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	store := openSessionStore(cfg, cmd.ErrOrStderr())
	defer store.Close()

	chat := newChatSession(cfg, client, store, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if chatResume != "" {
		if err := chat.resume(context.Background(), chatResume); err != nil {
			return err
		}
	}

	if ui.IsTerminal(os.Stdout) && chatResume == "" {
		ui.ClearScreen(chat.out)
	}
	ui.ShowWelcome(chat.out, chat.styles)
	if chatResume != "" {
		fmt.Fprintf(chat.out, "Resumed session %s (%d messages)\n\n", session.ShortID(chat.sess.ID), len(chat.sess.Conversation()))
	}

	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		chat.send(strings.TrimSpace(args[0]))
	}

	reader := input.NewReader(input.ReaderOptions{
		HistoryPath: historyFile(),
		Multiline:   chatMultiline,
		Commands:    chatCommandNames,
		Hint:        chat.out,
	})
	defer reader.Close()

	for {
		line, err := reader.ReadMessage("You: ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(chat.out, "Goodbye!")
			break
		}
		if errors.Is(err, input.ErrInterrupted) {
			fmt.Fprintln(chat.out, chat.styles.Muted.Render("(type 'exit' to quit)"))
			continue
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if chat.handle(line) {
			break
		}
	}

	if showStats {
		fmt.Fprintln(chat.errOut, chat.styles.Muted.Render(chat.stats.Render()))
	}
	return nil
}

// chatSession is the state of one interactive chat.
type chatSession struct {
	cfg       *config.Config
	client    *llm.OpenAIClient
	provider  llm.Provider
	store     session.Store
	styles    *ui.Styles
	renderers ui.Renderers
	stats     *ui.SessionStats
	adapter   *ui.StreamAdapter

	clip   *clipboard.Clipboard
	sess   *session.Session
	stored bool // sess exists in store

	out, errOut io.Writer
}

func newChatSession(cfg *config.Config, client *llm.OpenAIClient, store session.Store, out, errOut io.Writer) *chatSession {
	styles := ui.NewStyles(os.Stdout)
	renderers := newRenderers(styles)
	stats := ui.NewSessionStats()
	c := &chatSession{
		cfg:       cfg,
		client:    client,
		provider:  newStreamingProvider(client),
		store:     store,
		styles:    styles,
		renderers: renderers,
		stats:     stats,
		adapter:   ui.NewStreamAdapter(out, errOut, styles, renderers, stats),
		clip:      clipboard.New(),
		out:       out,
		errOut:    errOut,
		sess:      session.New(cfg.Model),
	}
	c.sess.Clear(cfg.SystemPrompt)
	return c
}

func (c *chatSession) resume(ctx context.Context, id string) error {
	sess, err := loadStoredSession(ctx, c.store, id)
	if err != nil {
		return err
	}
	if modelOverride != "" {
		sess.Model = modelOverride
	}
	c.sess = sess
	c.stored = true
	c.client.SetModel(sess.Model)
	return nil
}

// handle runs one line of input and reports whether the chat should end.
func (c *chatSession) handle(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case lower == "":
	case lower == "exit" || lower == "quit":
		fmt.Fprintln(c.out, "Goodbye!")
		return true
	case lower == "clear":
		ui.ClearScreen(c.out)
		ui.ShowWelcome(c.out, c.styles)
	case lower == "help":
		ui.ShowHelp(c.out, c.styles)
	case lower == "history":
		c.showHistory()
	case lower == "save":
		c.save()
	case lower == "copy":
		c.copyLastReply()
	case lower == "paste":
		c.paste()
	case strings.HasPrefix(lower, "model "):
		c.setModel(strings.TrimSpace(line[len("model "):]))
	default:
		c.send(line)
	}
	return false
}

// send runs one conversation turn. A failed turn leaves the conversation
// as it was before the message.
func (c *chatSession) send(text string) {
	ctx, stop := signal.NotifyContext(context.Background())
	defer stop()

	user := llm.UserText(text)
	c.sess.AddMessage(user)

	c.stats.TurnStart()
	reply, err := c.reply(ctx, conversationRequest(c.cfg, c.sess))
	c.stats.TurnEnd()

	if err != nil {
		c.sess.PopMessage()
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(c.errOut, c.styles.Muted.Render("(interrupted)"))
			return
		}
		ui.ShowError(c.errOut, c.styles, err)
		return
	}

	assistant := llm.AssistantText(reply.Text)
	c.sess.AddMessage(assistant)
	if reply.Usage != nil {
		c.sess.AddUsage(*reply.Usage)
	}
	fmt.Fprintln(c.out)
	c.persist(user, assistant)
}

// reply prints the model's answer to req.
func (c *chatSession) reply(ctx context.Context, req llm.Request) (ui.Reply, error) {
	ui.ShowAssistantHeader(c.out, c.styles)

	if !chatNoStream {
		stream, err := c.provider.Stream(ctx, req)
		if err != nil {
			return ui.Reply{}, err
		}
		return c.adapter.Print(ctx, stream)
	}

	spinner := ui.NewSpinner(c.out, c.styles, "Thinking...")
	spinner.Start()
	resp, err := c.client.Complete(ctx, req)
	spinner.Stop()
	if err != nil {
		if ctx.Err() != nil {
			return ui.Reply{}, ctx.Err()
		}
		return ui.Reply{}, err
	}
	c.stats.AddUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	printDocument(c.out, c.renderers, resp.Text)
	return ui.Reply{Text: resp.Text, Usage: &resp.Usage}, nil
}

// persist writes new messages to the store, creating the stored session
// on first use.
func (c *chatSession) persist(msgs ...llm.Message) {
	ctx := context.Background()
	if !c.stored {
		if err := c.store.Create(ctx, c.sess); err != nil {
			return
		}
		c.stored = true
		msgs = c.sess.History()
	}
	for _, m := range msgs {
		if err := c.store.AddMessage(ctx, c.sess.ID, m); err != nil {
			return
		}
	}
	c.store.Update(ctx, c.sess)
}

func (c *chatSession) showHistory() {
	conv := c.sess.Conversation()
	if len(conv) == 0 {
		fmt.Fprintln(c.out, c.styles.Muted.Render("No messages yet."))
		return
	}
	entries := make([]ui.HistoryEntry, 0, len(conv))
	for _, m := range conv {
		entries = append(entries, ui.HistoryEntry{Role: string(m.Role), Content: m.Content})
	}
	ui.ShowHistory(c.out, c.styles, entries, c.renderers.RenderDocument)
}

func (c *chatSession) save() {
	path, err := c.sess.SaveJSON("")
	if err != nil {
		ui.ShowError(c.errOut, c.styles, err)
		return
	}
	fmt.Fprintf(c.out, "Session saved to: %s\n", path)
}

// copyLastReply puts the most recent assistant reply on the clipboard.
func (c *chatSession) copyLastReply() {
	conv := c.sess.Conversation()
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role != llm.RoleAssistant {
			continue
		}
		if err := c.clip.CopyText(conv[i].Content); err != nil {
			ui.ShowError(c.errOut, c.styles, err)
			return
		}
		fmt.Fprintln(c.out, c.styles.Muted.Render("Copied last reply to clipboard."))
		return
	}
	fmt.Fprintln(c.out, c.styles.Muted.Render("No reply to copy yet."))
}

// paste sends the clipboard contents as the next message.
func (c *chatSession) paste() {
	text, err := c.clip.ReadText()
	if err != nil {
		ui.ShowError(c.errOut, c.styles, err)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		fmt.Fprintln(c.out, c.styles.Muted.Render("Clipboard is empty."))
		return
	}
	c.send(text)
}

func (c *chatSession) setModel(name string) {
	if name == "" {
		fmt.Fprintf(c.out, "Current model: %s\n", c.sess.Model)
		return
	}
	c.sess.Model = name
	c.client.SetModel(name)
	fmt.Fprintf(c.out, "Model changed to: %s\n", name)
}

// printDocument renders a complete reply and ends it with a newline.
func printDocument(w io.Writer, r ui.Renderers, text string) {
	out := r.RenderDocument(text)
	fmt.Fprint(w, out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Fprintln(w)
	}
}
