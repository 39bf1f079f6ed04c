package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

const clearScreenSeq = "\x1b[2J\x1b[1;1H"

// ShowWelcome prints the chat banner and the basic commands.
func ShowWelcome(w io.Writer, s *Styles) {
	fmt.Fprintln(w, s.WelcomeBox.Render("LLM CLI - Chat Mode"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, s.Muted.Render("Type 'exit' or 'quit' to end the session"))
	fmt.Fprintln(w, s.Muted.Render("Type 'clear' to clear the screen"))
	fmt.Fprintln(w, s.Muted.Render("Type 'help' for more commands"))
	fmt.Fprintln(w)
}

var chatCommands = [][2]string{
	{"exit/quit", "End the chat session"},
	{"clear", "Clear the screen"},
	{"help", "Show this help message"},
	{"history", "Show current session history"},
	{"save", "Save conversation to file"},
	{"copy", "Copy the last reply to the clipboard"},
	{"paste", "Send the clipboard contents as a message"},
	{"model <name>", "Change the model"},
}

// ShowHelp prints the chat commands.
func ShowHelp(w io.Writer, s *Styles) {
	fmt.Fprintln(w, s.Title.Render("Available Commands:"))
	for _, c := range chatCommands {
		name := s.Command.Render(c[0])
		pad := max(14-ANSILen(name), 1)
		fmt.Fprintf(w, "  %s%s- %s\n", name, strings.Repeat(" ", pad), c[1])
	}
	fmt.Fprintln(w)
}

// ShowError prints err in the error style.
func ShowError(w io.Writer, s *Styles, err error) {
	fmt.Fprintf(w, "%s %v\n", s.Error.Render("Error:"), err)
}

// ClearScreen clears the terminal and moves the cursor home.
func ClearScreen(w io.Writer) {
	fmt.Fprint(w, clearScreenSeq)
}

// ShowAssistantHeader prints the label above a reply.
func ShowAssistantHeader(w io.Writer, s *Styles) {
	fmt.Fprintf(w, "\n%s\n", s.Role.Render("Assistant:"))
}

// JSONResponse is the document printed by query --format json.
type JSONResponse struct {
	Response  string `json:"response"`
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
}

// FormatJSONResponse renders a reply as indented JSON.
func FormatJSONResponse(response, model string, at time.Time) (string, error) {
	data, err := json.MarshalIndent(JSONResponse{
		Response:  response,
		Model:     model,
		Timestamp: at.UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode response: %w", err)
	}
	return string(data), nil
}

// HistoryEntry is one message shown by the history command.
type HistoryEntry struct {
	Role    string
	Content string
}

// ShowHistory prints a conversation, rendering every message with render.
func ShowHistory(w io.Writer, s *Styles, entries []HistoryEntry, render func(string) string) {
	rule := s.Muted.Render(strings.Repeat("─", 60))
	fmt.Fprintf(w, "\n%s\n%s\n", s.Title.Render("Session History:"), rule)
	for _, e := range entries {
		fmt.Fprintf(w, "\n%s\n\n", s.Role.Render(roleLabel(e.Role)+":"))
		fmt.Fprintln(w, strings.TrimRight(render(e.Content), "\n"))
	}
	fmt.Fprintf(w, "\n%s\n", rule)
}

func roleLabel(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
