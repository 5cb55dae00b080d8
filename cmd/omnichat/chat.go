package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"

	"omnichat/internal/attachment"
	"omnichat/internal/chat"
	"omnichat/internal/gateway"
	"omnichat/internal/orchestrator"
	"omnichat/internal/persona"
	"omnichat/internal/speech"
	"omnichat/internal/store"
)

// missingKeyGenerator stands in when no API key is configured, so the app
// stays usable and every send surfaces the credential problem in-band.
type missingKeyGenerator struct{}

func (missingKeyGenerator) Generate(context.Context, []chat.Message, string, gateway.Options) string {
	return gateway.FallbackInvalidKey
}

// chatUI is the interactive REPL over the orchestration core.
type chatUI struct {
	st       *store.SessionStore
	orch     *orchestrator.Orchestrator
	speech   speech.Recognizer
	renderer *glamour.TermRenderer
	reader   *bufio.Scanner

	currentChatID string
}

func runInteractiveChat() error {
	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	var gen orchestrator.Generator
	if cfg.Gemini.APIKey == "" {
		fmt.Println(warnStyle.Render("⚠ No API key detected. Set GEMINI_API_KEY or add it to config.yaml."))
		gen = missingKeyGenerator{}
	} else {
		gw, err := gateway.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.TextModel, cfg.Gemini.VisionModel)
		if err != nil {
			return err
		}
		gen = gw
	}

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	ui := &chatUI{
		st:       st,
		orch:     orchestrator.New(st, gen),
		speech:   speech.Unsupported{},
		renderer: renderer,
		reader:   bufio.NewScanner(os.Stdin),
	}
	ui.reader.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ui.printHome()
	return ui.loop(ctx)
}

func (u *chatUI) printHome() {
	fmt.Println(titleStyle.Render("Intelligence Center"))
	fmt.Println(subtleStyle.Render("Ready to assist with specialized expert models."))
	fmt.Println()
	for _, p := range persona.Registry {
		fmt.Printf("  %s %-18s %s\n", p.Icon, personaStyle(p).Render(p.Name), subtleStyle.Render(p.Role))
	}
	fmt.Println()
	fmt.Println(subtleStyle.Render("Quick prompts:"))
	for _, tp := range persona.TrendingPrompts {
		fmt.Printf("  · %s\n", tp)
	}
	fmt.Println()
	fmt.Println(subtleStyle.Render("Start with /new <persona>, resume with /chats and /open <n>, or /help."))
}

func (u *chatUI) loop(ctx context.Context) error {
	for {
		fmt.Print(userStyle.Render("> "))
		if !u.reader.Scan() {
			return u.reader.Err()
		}
		line := strings.TrimSpace(u.reader.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := u.handleCommand(ctx, line)
			if err != nil {
				fmt.Println(errStyle.Render(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		u.send(ctx, line)
	}
}

func (u *chatUI) handleCommand(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		u.printHelp()

	case "/new":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /new <persona> (see `omnichat personas`)")
		}
		id := persona.ID(args[0])
		if _, ok := persona.Find(id); !ok {
			return false, fmt.Errorf("unknown persona %q", args[0])
		}
		c := u.st.CreateChat(id)
		u.openChat(c.ID)

	case "/chats":
		chats := u.st.Chats()
		if len(chats) == 0 {
			fmt.Println(subtleStyle.Render("No recent conversations."))
			break
		}
		for i, c := range chats {
			p := persona.FindOrDefault(persona.ID(c.PersonaID))
			fmt.Printf("%2d. %s %s %s\n", i+1, p.Icon, c.Title,
				subtleStyle.Render(fmt.Sprintf("(%d messages)", len(c.Messages))))
		}

	case "/open":
		c, err := u.chatByIndex(args)
		if err != nil {
			return false, err
		}
		u.openChat(c.ID)

	case "/delete":
		c, err := u.chatByIndex(args)
		if err != nil {
			return false, err
		}
		u.st.DeleteChat(c.ID)
		if u.currentChatID == c.ID {
			u.currentChatID = ""
		}
		fmt.Println(subtleStyle.Render("Deleted " + c.Title))

	case "/image":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /image <path>")
		}
		p, err := attachment.ResolveImage(strings.Join(args, " "))
		if err != nil {
			return false, fmt.Errorf("error reading image: %w", err)
		}
		u.orch.Composer().StageImage(p)
		fmt.Println(subtleStyle.Render("Staged image " + p.Name))

	case "/file":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /file <path>")
		}
		p, err := attachment.ResolveDocument(strings.Join(args, " "))
		if err != nil {
			return false, fmt.Errorf("error reading file: %w", err)
		}
		u.orch.Composer().StageDocument(p)
		fmt.Println(subtleStyle.Render("Staged file " + p.Name))

	case "/clear":
		u.orch.Composer().ClearImage()
		u.orch.Composer().ClearDocument()
		fmt.Println(subtleStyle.Render("Cleared staged attachments."))

	case "/tone":
		tone, err := parseTone(args)
		if err != nil {
			return false, err
		}
		u.orch.Composer().SetTone(tone)

	case "/format":
		format, err := parseFormat(args)
		if err != nil {
			return false, err
		}
		u.orch.Composer().SetFormat(format)

	case "/fav":
		if u.currentChatID == "" {
			return false, fmt.Errorf("open a chat first")
		}
		c, ok := u.st.Chat(u.currentChatID)
		if !ok || len(args) == 0 {
			return false, fmt.Errorf("usage: /fav <message number>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(c.Messages) {
			return false, fmt.Errorf("no message %s", args[0])
		}
		u.st.ToggleFavorite(c.ID, c.Messages[n-1].ID)

	case "/voice":
		if !u.speech.Available() {
			fmt.Println(warnStyle.Render("Voice input not supported."))
			break
		}
		text, err := u.speech.Transcribe(ctx)
		if err != nil {
			return false, err
		}
		u.orch.Composer().SetText(text)
		fmt.Printf("Transcribed: %s\n", text)

	case "/upgrade":
		u.st.UpdateProfile(func(p *chat.UserProfile) { p.IsPro = true })
		fmt.Println(titleStyle.Render("⚡ Welcome to OmniAI Platinum.") + " Unlimited messaging unlocked.")

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}

func (u *chatUI) printHelp() {
	help := [][2]string{
		{"/new <persona>", "start a conversation (chatgpt, doctor, psychologist, ...)"},
		{"/chats", "list saved conversations"},
		{"/open <n>", "resume conversation n"},
		{"/delete <n>", "delete conversation n"},
		{"/image <path>", "stage an image for the next message"},
		{"/file <path>", "stage a document (PDF or text) for the next message"},
		{"/clear", "discard staged attachments"},
		{"/tone <t>", "professional | friendly | short | detailed | steps | off"},
		{"/format <f>", "bullets | table | email | summary | off"},
		{"/fav <n>", "toggle favorite on message n"},
		{"/voice", "dictate into the input (if supported)"},
		{"/upgrade", "unlock unlimited messaging"},
		{"/quit", "exit"},
	}
	for _, h := range help {
		fmt.Printf("  %-16s %s\n", h[0], subtleStyle.Render(h[1]))
	}
}

func (u *chatUI) chatByIndex(args []string) (chat.Chat, error) {
	chats := u.st.Chats()
	if len(args) == 0 {
		return chat.Chat{}, fmt.Errorf("which conversation? (see /chats)")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(chats) {
		return chat.Chat{}, fmt.Errorf("no conversation %s", args[0])
	}
	return chats[n-1], nil
}

// openChat makes a chat current, replays its history, and prints the
// persona's disclaimer once.
func (u *chatUI) openChat(chatID string) {
	c, ok := u.st.Chat(chatID)
	if !ok {
		fmt.Println(errStyle.Render("conversation no longer exists"))
		return
	}
	u.currentChatID = chatID
	p := persona.FindOrDefault(persona.ID(c.PersonaID))

	fmt.Printf("\n%s %s — %s\n", p.Icon, personaStyle(p).Render(p.Name), subtleStyle.Render(c.Title))
	if p.Disclaimer != "" {
		fmt.Println(warnStyle.Render(p.Disclaimer))
	}
	for _, m := range c.Messages {
		u.printMessage(p, m)
	}
	if len(c.Messages) == 0 {
		fmt.Println(subtleStyle.Render(fmt.Sprintf("Ask %s anything.", p.Name)))
	}
}

func (u *chatUI) send(ctx context.Context, text string) {
	if u.currentChatID == "" {
		fmt.Println(subtleStyle.Render("No conversation open. Start one with /new <persona>."))
		return
	}

	u.orch.Composer().SetText(text)
	res := u.orch.Send(ctx, u.currentChatID)

	switch res.State {
	case orchestrator.StateRejected:
		// Nothing to send; silently ignore like the reference design.
	case orchestrator.StateBlocked:
		u.printPaywall()
	case orchestrator.StateFailed:
		fmt.Println(errStyle.Render("Something went wrong. Your message was kept; please try again."))
	case orchestrator.StateCommitted:
		c, ok := u.st.Chat(u.currentChatID)
		if !ok || res.AssistantMessage == nil {
			return
		}
		p := persona.FindOrDefault(persona.ID(c.PersonaID))
		u.printMessage(p, *res.AssistantMessage)
	}
}

func (u *chatUI) printMessage(p persona.Persona, m chat.Message) {
	if m.Role == chat.RoleUser {
		label := userStyle.Render("you")
		if m.Attachment != nil && m.Attachment.Name != "" {
			label += subtleStyle.Render(" [" + m.Attachment.Name + "]")
		}
		fmt.Printf("%s  %s\n", label, m.Content)
		return
	}

	fmt.Printf("%s\n", personaStyle(p).Render(p.Name))
	if u.renderer != nil {
		if out, err := u.renderer.Render(m.Content); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Println(m.Content)
}

func (u *chatUI) printPaywall() {
	body := titleStyle.Render("⚡ OmniAI Platinum") + "\n\n" +
		"You've used all " + strconv.Itoa(chat.FreeMessageLimit) + " free messages.\n" +
		"Unlock advanced reasoning models, vision analysis,\n" +
		"and unlimited high-speed messaging with /upgrade."
	fmt.Println(paywallStyle.Render(body))
}

func parseTone(args []string) (chat.Tone, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /tone professional|friendly|short|detailed|steps|off")
	}
	switch strings.ToLower(args[0]) {
	case "professional":
		return chat.ToneProfessional, nil
	case "friendly":
		return chat.ToneFriendly, nil
	case "short":
		return chat.ToneShort, nil
	case "detailed":
		return chat.ToneDetailed, nil
	case "steps", "step-by-step":
		return chat.ToneStepByStep, nil
	case "off", "none":
		return "", nil
	}
	return "", fmt.Errorf("unknown tone %q", args[0])
}

func parseFormat(args []string) (chat.Format, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /format bullets|table|email|summary|off")
	}
	switch strings.ToLower(args[0]) {
	case "bullets", "bullet":
		return chat.FormatBullets, nil
	case "table":
		return chat.FormatTable, nil
	case "email":
		return chat.FormatEmail, nil
	case "summary":
		return chat.FormatSummary, nil
	case "off", "none":
		return "", nil
	}
	return "", fmt.Errorf("unknown format %q", args[0])
}
