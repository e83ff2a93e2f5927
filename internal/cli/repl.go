// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Interactive chat loop for the chatsphere CLI.
//
// Reads input with history support, dispatches slash commands, and submits
// everything else through the chat flow.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/morganforge/chatsphere/internal/chat"
	"github.com/morganforge/chatsphere/internal/config"
	"github.com/morganforge/chatsphere/internal/model"
	"github.com/morganforge/chatsphere/internal/openrouter"
	"github.com/morganforge/chatsphere/internal/state"
	"github.com/morganforge/chatsphere/internal/util"
)

// =============================================================================
// REPL
// =============================================================================

// Repl is the interactive chat session.
type Repl struct {
	manager *state.Manager
	flow    *chat.Flow
	client  *openrouter.Client
	cfg     *config.Config
	input   *ChatCLI
	quiet   bool

	// cancel for the in-flight submission, nil when idle; guarded by
	// cancelMu because the signal goroutine fires it
	cancelMu     sync.Mutex
	cancelSubmit context.CancelFunc
}

// setCancel publishes the cancel func for the in-flight submission.
func (r *Repl) setCancel(cancel context.CancelFunc) {
	r.cancelMu.Lock()
	r.cancelSubmit = cancel
	r.cancelMu.Unlock()
}

// clearCancel retires the published cancel func after the submission ends.
func (r *Repl) clearCancel() {
	r.cancelMu.Lock()
	r.cancelSubmit = nil
	r.cancelMu.Unlock()
}

// fireCancel cancels the in-flight submission, reporting whether one was
// actually outstanding.
func (r *Repl) fireCancel() bool {
	r.cancelMu.Lock()
	cancel := r.cancelSubmit
	r.cancelSubmit = nil
	r.cancelMu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// NewRepl creates an interactive session over the given state and transport.
func NewRepl(manager *state.Manager, flow *chat.Flow, client *openrouter.Client, cfg *config.Config, quiet bool) *Repl {
	historyFile, err := cfg.Storage.ResolveHistoryFile()
	if err != nil {
		historyFile = os.TempDir() + "/chatsphere_history"
	}

	return &Repl{
		manager: manager,
		flow:    flow,
		client:  client,
		cfg:     cfg,
		input:   NewChatCLI(historyFile),
		quiet:   quiet,
	}
}

// Run starts the REPL and blocks until the user exits.
func (r *Repl) Run() error {
	defer r.input.Close()

	r.ensureSelection()

	if !r.quiet {
		r.printWelcome()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			// First Ctrl+C cancels the in-flight completion.
			if r.fireCancel() {
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := r.input.ReadInput(promptStyle.Render("chatsphere> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF (Ctrl+D) exits gracefully.
			if err == liner.ErrPromptAborted {
				fmt.Println()
				return nil
			}
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			cont, err := r.handleSlashCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !cont {
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		r.submit(input)
	}
}

// ensureSelection guarantees an active workspace and thread exist so the
// first message has somewhere to go.
func (r *Repl) ensureSelection() {
	if len(r.manager.Workspaces()) == 0 {
		ws := r.manager.CreateWorkspace()
		if r.cfg.Chat.DefaultModel != "" {
			r.manager.UpdateWorkspaceSettings(ws.ID, model.WorkspaceSettings{
				SelectedModelID: r.cfg.Chat.DefaultModel,
				Temperature:     r.cfg.Chat.DefaultTemperature,
			})
		}
		r.manager.CreateThread(ws.ID)
		return
	}

	wsID, thID := r.manager.Selection()
	if wsID == "" || r.manager.WorkspaceByID(wsID) == nil {
		ws := r.manager.Workspaces()[0]
		wsID = ws.ID
		thID = ""
		if len(ws.Threads) > 0 {
			thID = ws.Threads[0].ID
		}
		r.manager.SetActiveSelection(wsID, thID)
	}
	if thID == "" || r.manager.ActiveThread() == nil {
		r.manager.CreateThread(wsID)
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

// submit runs one message through the chat flow and displays the reply.
func (r *Repl) submit(input string) {
	ctx, cancel := context.WithCancel(context.Background())
	r.setCancel(cancel)
	defer func() {
		r.clearCancel()
		cancel()
	}()

	start := time.Now()
	fmt.Println()

	if err := r.flow.Submit(ctx, input); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("[Error]"), chat.FriendlyError(err))
		return
	}

	thread := r.manager.ActiveThread()
	if thread == nil {
		return
	}
	last := thread.LastMessage()
	if last == nil || last.Role != model.RoleAssistant {
		return
	}

	displayResponse(last.Content, r.cfg.UI.Markdown)
	fmt.Println()

	if !r.quiet {
		fmt.Fprintf(os.Stderr, "%s %s\n",
			infoStyle.Render("[Stats]"),
			time.Since(start).Round(time.Millisecond))
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func (r *Repl) handleSlashCommand(cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		r.printHelp()
		return true, nil

	case "/workspaces", "/ws":
		r.printWorkspaces()
		return true, nil

	case "/workspace", "/w":
		return true, r.handleWorkspaceCommand(args)

	case "/threads", "/ts":
		r.printThreads()
		return true, nil

	case "/thread", "/t":
		return true, r.handleThreadCommand(args)

	case "/models":
		return true, r.handleModelsCommand()

	case "/model", "/m":
		return true, r.handleModelCommand(args)

	case "/temp":
		return true, r.handleTempCommand(args)

	case "/system":
		return true, r.handleSystemCommand(args)

	case "/key", "/k":
		return true, r.handleKeyCommand()

	case "/history":
		r.printHistory()
		return true, nil

	case "/copy":
		return true, r.handleCopyCommand()

	case "/export":
		return true, r.handleExportCommand(args)

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

func (r *Repl) handleWorkspaceCommand(args []string) error {
	if len(args) == 0 {
		ws := r.manager.ActiveWorkspace()
		if ws == nil {
			fmt.Println(infoStyle.Render("[No active workspace]"))
			return nil
		}
		fmt.Printf("%s %s\n", infoStyle.Render("[Workspace]"), commandStyle.Render(ws.Name))
		return nil
	}

	switch args[0] {
	case "new":
		ws := r.manager.CreateWorkspace()
		if len(args) > 1 {
			r.manager.RenameWorkspace(ws.ID, strings.Join(args[1:], " "))
		}
		th := r.manager.CreateThread(ws.ID)
		if th != nil {
			r.manager.SetActiveSelection(ws.ID, th.ID)
		}
		fmt.Printf("%s Created workspace\n", commandStyle.Render("[OK]"))
		return nil

	case "rename":
		if len(args) < 2 {
			return fmt.Errorf("usage: /workspace rename <name>")
		}
		ws := r.manager.ActiveWorkspace()
		if ws == nil {
			return fmt.Errorf("no active workspace")
		}
		r.manager.RenameWorkspace(ws.ID, strings.Join(args[1:], " "))
		fmt.Printf("%s Renamed workspace\n", commandStyle.Render("[OK]"))
		return nil

	case "delete":
		ws := r.manager.ActiveWorkspace()
		if ws == nil {
			return fmt.Errorf("no active workspace")
		}
		r.manager.DeleteWorkspace(ws.ID)
		r.ensureSelection()
		fmt.Printf("%s Deleted workspace\n", commandStyle.Render("[OK]"))
		return nil

	case "select":
		if len(args) < 2 {
			return fmt.Errorf("usage: /workspace select <number>")
		}
		return r.selectWorkspaceByIndex(args[1])

	default:
		return fmt.Errorf("usage: /workspace [new|rename|delete|select]")
	}
}

func (r *Repl) selectWorkspaceByIndex(arg string) error {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("workspace number must be an integer")
	}
	workspaces := r.manager.Workspaces()
	if idx < 1 || idx > len(workspaces) {
		return fmt.Errorf("workspace %d does not exist (have %d)", idx, len(workspaces))
	}
	ws := workspaces[idx-1]
	threadID := ""
	if len(ws.Threads) > 0 {
		threadID = ws.Threads[0].ID
	}
	r.manager.SetActiveSelection(ws.ID, threadID)
	if threadID == "" {
		r.manager.CreateThread(ws.ID)
	}
	fmt.Printf("%s Switched to %s\n", commandStyle.Render("[OK]"), ws.Name)
	return nil
}

func (r *Repl) handleThreadCommand(args []string) error {
	ws := r.manager.ActiveWorkspace()
	if ws == nil {
		return fmt.Errorf("no active workspace")
	}

	if len(args) == 0 {
		th := r.manager.ActiveThread()
		if th == nil {
			fmt.Println(infoStyle.Render("[No active thread]"))
			return nil
		}
		fmt.Printf("%s %s (%d messages)\n",
			infoStyle.Render("[Thread]"),
			commandStyle.Render(th.Name),
			th.MessageCount())
		return nil
	}

	switch args[0] {
	case "new":
		th := r.manager.CreateThread(ws.ID)
		if th != nil && len(args) > 1 {
			r.manager.RenameThread(ws.ID, th.ID, strings.Join(args[1:], " "))
		}
		fmt.Printf("%s Created thread\n", commandStyle.Render("[OK]"))
		return nil

	case "rename":
		if len(args) < 2 {
			return fmt.Errorf("usage: /thread rename <name>")
		}
		th := r.manager.ActiveThread()
		if th == nil {
			return fmt.Errorf("no active thread")
		}
		r.manager.RenameThread(ws.ID, th.ID, strings.Join(args[1:], " "))
		fmt.Printf("%s Renamed thread\n", commandStyle.Render("[OK]"))
		return nil

	case "delete":
		th := r.manager.ActiveThread()
		if th == nil {
			return fmt.Errorf("no active thread")
		}
		r.manager.DeleteThread(ws.ID, th.ID)
		r.ensureSelection()
		fmt.Printf("%s Deleted thread\n", commandStyle.Render("[OK]"))
		return nil

	case "select":
		if len(args) < 2 {
			return fmt.Errorf("usage: /thread select <number>")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("thread number must be an integer")
		}
		if idx < 1 || idx > len(ws.Threads) {
			return fmt.Errorf("thread %d does not exist (have %d)", idx, len(ws.Threads))
		}
		r.manager.SetActiveSelection(ws.ID, ws.Threads[idx-1].ID)
		fmt.Printf("%s Switched to %s\n", commandStyle.Render("[OK]"), ws.Threads[idx-1].Name)
		return nil

	default:
		return fmt.Errorf("usage: /thread [new|rename|delete|select]")
	}
}

func (r *Repl) handleModelsCommand() error {
	global := r.manager.GlobalSettings()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	models, err := r.client.ListModels(ctx, global.OpenRouterAPIKey)
	if err != nil {
		return fmt.Errorf("listing models: %s", chat.FriendlyError(err))
	}
	if len(models) == 0 {
		fmt.Println(infoStyle.Render("[No models available]"))
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Available Models"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	for _, m := range models {
		line := fmt.Sprintf("  %s", commandStyle.Render(m.ID))
		if m.Name != "" && m.Name != m.ID {
			line += "  " + infoStyle.Render(m.Name)
		}
		fmt.Println(line)
	}
	fmt.Println()
	return nil
}

func (r *Repl) handleModelCommand(args []string) error {
	ws := r.manager.ActiveWorkspace()
	if ws == nil {
		return fmt.Errorf("no active workspace")
	}

	if len(args) == 0 {
		if ws.Settings.SelectedModelID == "" {
			fmt.Println(warningStyle.Render("[No model selected]"))
			return nil
		}
		fmt.Printf("%s %s\n", infoStyle.Render("[Model]"), commandStyle.Render(ws.Settings.SelectedModelID))
		return nil
	}

	settings := ws.Settings
	settings.SelectedModelID = args[0]
	r.manager.UpdateWorkspaceSettings(ws.ID, settings)
	fmt.Printf("%s Switched to model: %s\n", commandStyle.Render("[OK]"), args[0])
	return nil
}

func (r *Repl) handleTempCommand(args []string) error {
	ws := r.manager.ActiveWorkspace()
	if ws == nil {
		return fmt.Errorf("no active workspace")
	}

	if len(args) == 0 {
		fmt.Printf("%s %.2f\n", infoStyle.Render("[Temperature]"), ws.Settings.Temperature)
		return nil
	}

	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("temperature must be a number between %v and %v", model.MinTemperature, model.MaxTemperature)
	}

	settings := ws.Settings
	settings.Temperature = v
	r.manager.UpdateWorkspaceSettings(ws.ID, settings)

	applied := r.manager.ActiveWorkspace().Settings.Temperature
	if applied != v {
		fmt.Printf("%s Temperature clamped to %.2f\n", warningStyle.Render("[Note]"), applied)
	} else {
		fmt.Printf("%s Temperature set to %.2f\n", commandStyle.Render("[OK]"), applied)
	}
	return nil
}

func (r *Repl) handleSystemCommand(args []string) error {
	global := r.manager.GlobalSettings()

	if len(args) == 0 {
		fmt.Printf("%s %s\n", infoStyle.Render("[System prompt]"), global.SystemPrompt)
		return nil
	}

	global.SystemPrompt = strings.Join(args, " ")
	r.manager.UpdateGlobalSettings(global)
	fmt.Printf("%s System prompt updated\n", commandStyle.Render("[OK]"))
	return nil
}

// handleKeyCommand reads the API key without echoing it to the terminal.
func (r *Repl) handleKeyCommand() error {
	if !IsTTY() {
		return fmt.Errorf("stdin is not a terminal; cannot read key interactively")
	}

	fmt.Print(infoStyle.Render("OpenRouter API key (input hidden): "))
	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading key: %w", err)
	}

	key := strings.TrimSpace(string(keyBytes))
	if err := openrouter.ValidateAPIKey(key); err != nil {
		return fmt.Errorf("key must start with %q", openrouter.APIKeyPrefix)
	}

	global := r.manager.GlobalSettings()
	global.OpenRouterAPIKey = key
	r.manager.UpdateGlobalSettings(global)
	fmt.Printf("%s API key saved\n", commandStyle.Render("[OK]"))
	return nil
}

func (r *Repl) handleCopyCommand() error {
	thread := r.manager.ActiveThread()
	if thread == nil {
		return fmt.Errorf("no active thread")
	}

	for i := len(thread.Messages) - 1; i >= 0; i-- {
		if thread.Messages[i].Role == model.RoleAssistant {
			if err := clipboard.WriteAll(thread.Messages[i].Content); err != nil {
				return fmt.Errorf("copying to clipboard: %w", err)
			}
			fmt.Printf("%s Copied last reply to clipboard\n", commandStyle.Render("[OK]"))
			return nil
		}
	}
	return fmt.Errorf("no assistant reply to copy")
}

func (r *Repl) handleExportCommand(args []string) error {
	thread := r.manager.ActiveThread()
	if thread == nil {
		return fmt.Errorf("no active thread")
	}

	path := sanitizeFilename(thread.Name) + ".md"
	if len(args) > 0 {
		path = args[0]
	}

	if err := util.AtomicWriteFile(path, []byte(thread.ExportMarkdown()), 0644); err != nil {
		return fmt.Errorf("exporting thread: %w", err)
	}
	fmt.Printf("%s Exported to %s\n", commandStyle.Render("[OK]"), path)
	return nil
}

// sanitizeFilename keeps exported filenames shell-friendly.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "thread"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "thread"
	}
	return b.String()
}

// =============================================================================
// DISPLAY
// =============================================================================

func (r *Repl) printWelcome() {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("chatsphere interactive chat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))

	if ws := r.manager.ActiveWorkspace(); ws != nil {
		fmt.Printf("%s %s\n", infoStyle.Render("Workspace:"), commandStyle.Render(ws.Name))
		if ws.Settings.SelectedModelID != "" {
			fmt.Printf("%s %s\n", infoStyle.Render("Model:"), commandStyle.Render(ws.Settings.SelectedModelID))
		} else {
			fmt.Printf("%s %s\n", infoStyle.Render("Model:"), warningStyle.Render("none (set with /model)"))
		}
	}

	if r.manager.GlobalSettings().OpenRouterAPIKey == "" {
		fmt.Printf("%s %s\n", infoStyle.Render("API key:"), warningStyle.Render("not set (set with /key)"))
	} else {
		fmt.Printf("%s %s\n", infoStyle.Render("API key:"), commandStyle.Render("configured"))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

func (r *Repl) printHelp() {
	fmt.Println()
	fmt.Println(headerStyle.Render("Available Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/workspaces", "List workspaces"},
		{"/workspace new|rename|delete|select", "Manage workspaces"},
		{"/threads", "List threads in the active workspace"},
		{"/thread new|rename|delete|select", "Manage threads"},
		{"/models", "List available models"},
		{"/model [id]", "Show or set the workspace model"},
		{"/temp [value]", "Show or set the sampling temperature"},
		{"/system [prompt]", "Show or set the system prompt"},
		{"/key", "Set the OpenRouter API key"},
		{"/history", "Show the active thread's messages"},
		{"/copy", "Copy the last reply to the clipboard"},
		{"/export [file]", "Export the active thread as markdown"},
		{"/quit, /q", "Exit"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-38s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels the current completion, Ctrl+D exits"))
	fmt.Println()
}

func (r *Repl) printWorkspaces() {
	workspaces := r.manager.Workspaces()
	if len(workspaces) == 0 {
		fmt.Println(infoStyle.Render("[No workspaces]"))
		return
	}

	activeID, _ := r.manager.Selection()

	fmt.Println()
	fmt.Println(headerStyle.Render("Workspaces"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 15)))
	for i, ws := range workspaces {
		marker := "  "
		name := ws.Name
		if ws.ID == activeID {
			marker = commandStyle.Render("* ")
			name = commandStyle.Render(name)
		}
		fmt.Printf("%s%d. %s %s\n", marker, i+1, name,
			infoStyle.Render(fmt.Sprintf("(%d threads)", len(ws.Threads))))
	}
	fmt.Println()
}

func (r *Repl) printThreads() {
	ws := r.manager.ActiveWorkspace()
	if ws == nil {
		fmt.Println(infoStyle.Render("[No active workspace]"))
		return
	}
	if len(ws.Threads) == 0 {
		fmt.Println(infoStyle.Render("[No threads]"))
		return
	}

	_, activeThreadID := r.manager.Selection()

	fmt.Println()
	fmt.Println(headerStyle.Render("Threads in " + ws.Name))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 15)))
	for i, th := range ws.Threads {
		marker := "  "
		name := th.Name
		if th.ID == activeThreadID {
			marker = commandStyle.Render("* ")
			name = commandStyle.Render(name)
		}
		preview := th.Preview(40)
		if preview != "" {
			preview = infoStyle.Render(" - " + preview)
		}
		fmt.Printf("%s%d. %s%s\n", marker, i+1, name, preview)
	}
	fmt.Println()
}

func (r *Repl) printHistory() {
	thread := r.manager.ActiveThread()
	if thread == nil || thread.IsEmpty() {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Conversation History"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for i, msg := range thread.Messages {
		var role string
		switch msg.Role {
		case model.RoleUser:
			role = userRoleStyle.Render(msg.Role.DisplayName())
		case model.RoleAssistant:
			role = assistantRoleStyle.Render(msg.Role.DisplayName())
		default:
			role = systemRoleStyle.Render(msg.Role.DisplayName())
		}

		content := strings.ReplaceAll(util.TruncateRunes(msg.Content, 100), "\n", " ")
		fmt.Printf("  %d. %s: %s\n", i+1, role, content)
	}

	fmt.Println()
}
