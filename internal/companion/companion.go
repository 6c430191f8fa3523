// Package companion holds the house personalities and the handlers that turn
// recognized voice commands into replies.
package companion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lumos/internal/chat"
	"lumos/internal/command"
	"lumos/internal/prefs"
	"lumos/internal/session"
)

const (
	ApologyReply = "I apologize, but I'm having trouble connecting to my magical network right now. Please try again in a moment!"
	SilentReply  = "I apologize, but I cannot provide a response at the moment. Please try again."
)

// Completer is a chat model taking one system and one user message.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Preferences is the store the companion reads its house and mood from.
type Preferences interface {
	Get() prefs.Prefs
	Update(fn func(*prefs.Prefs)) (prefs.Prefs, error)
}

type Companion struct {
	chat    Completer
	prefs   Preferences
	lexicon *command.Lexicon
	logger  *slog.Logger
}

func New(c Completer, p Preferences, lexicon *command.Lexicon, logger *slog.Logger) *Companion {
	if lexicon == nil {
		lexicon = command.DefaultLexicon()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Companion{chat: c, prefs: p, lexicon: lexicon, logger: logger}
}

// Handlers binds every non-STOP intent to its reply.
func (c *Companion) Handlers() map[command.Intent]session.Handler {
	return map[command.Intent]session.Handler{
		command.Chat:         c.Chat,
		command.Fashion:      c.Fashion,
		command.Productivity: c.Productivity,
		command.Mood:         c.ChangeMood,
		command.House:        c.ChangeHouse,
		command.Help:         c.Help,
	}
}

func (c *Companion) current() (House, Mood) {
	p := c.prefs.Get()
	return House(p.House), Mood(p.Mood)
}

// SystemPrompt combines the house personality with the mood modifier.
func SystemPrompt(h House, m Mood) string {
	prompt := h.Personality().SystemPrompt
	if mod := m.Modifier(); mod != "" {
		prompt += "\n\n" + mod
	}
	return prompt
}

// ask never fails: chat errors become the apology reply.
func (c *Companion) ask(ctx context.Context, user string) string {
	h, m := c.current()

	reply, err := c.chat.Complete(ctx, SystemPrompt(h, m), user)
	switch {
	case errors.Is(err, chat.ErrEmptyReply):
		c.logger.Warn("chat returned nothing", "house", h)
		return SilentReply
	case err != nil:
		c.logger.Error("chat failed", "house", h, "err", err)
		return ApologyReply
	}
	return reply
}

func (c *Companion) Chat(ctx context.Context, transcript string) (string, error) {
	return c.ask(ctx, transcript), nil
}

func FashionPrompt(request string, h House, occasion string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provide fashion advice for this request: %q.\n", request)
	if occasion != "" {
		fmt.Fprintf(&b, "The occasion is: %s.\n", occasion)
	}
	fmt.Fprintf(&b, "Give specific, actionable fashion suggestions that align with %s house aesthetics.\n", h)
	b.WriteString("Include color recommendations, styling tips, and outfit combinations.\n")
	b.WriteString("Keep the advice practical yet magical in presentation.")
	return b.String()
}

func ProductivityPrompt(task string, h House) string {
	return fmt.Sprintf(`Help me with this productivity challenge: %q.
Provide specific, actionable advice for accomplishing this task efficiently.
Include time management tips, motivation strategies, and step-by-step guidance.
Make the advice inspiring and align it with %s house values.`, task, h)
}

func (c *Companion) Fashion(ctx context.Context, transcript string) (string, error) {
	h, _ := c.current()
	return c.ask(ctx, FashionPrompt(transcript, h, "")), nil
}

func (c *Companion) Productivity(ctx context.Context, transcript string) (string, error) {
	h, _ := c.current()
	return c.ask(ctx, ProductivityPrompt(transcript, h)), nil
}

func (c *Companion) ChangeMood(_ context.Context, transcript string) (string, error) {
	m, ok := FindMood(transcript)
	if !ok {
		names := make([]string, len(Moods))
		for i, m := range Moods {
			names[i] = string(m)
		}
		return "How are you feeling? Say one of: " + strings.Join(names, ", ") + ".", nil
	}

	if _, err := c.prefs.Update(func(p *prefs.Prefs) { p.Mood = string(m) }); err != nil {
		return "", fmt.Errorf("saving mood: %w", err)
	}

	c.logger.Info("mood changed", "mood", m)
	return fmt.Sprintf("Your mood is now %s. I will keep that in mind.", m), nil
}

func (c *Companion) ChangeHouse(_ context.Context, transcript string) (string, error) {
	h, ok := FindHouse(transcript)
	if !ok {
		return "The sorting hat is listening. Say Gryffindor, Slytherin, Hufflepuff or Ravenclaw.", nil
	}

	if _, err := c.prefs.Update(func(p *prefs.Prefs) { p.House = string(h) }); err != nil {
		return "", fmt.Errorf("saving house: %w", err)
	}

	c.logger.Info("house changed", "house", h)

	t := h.Theme()
	return fmt.Sprintf("Welcome to %s! %s. %s. I am %s.",
		t.DisplayName, t.Description, t.Motto, h.Personality().Name), nil
}

// Help lists the first trigger phrase of every intent.
func (c *Companion) Help(context.Context, string) (string, error) {
	var spells []string
	for _, in := range c.lexicon.Intents() {
		if p := c.lexicon.Phrases(in); len(p) > 0 {
			spells = append(spells, fmt.Sprintf("%s for %s", p[0], strings.ToLower(in.String())))
		}
	}
	return "You can say " + strings.Join(spells, ", ") + ".", nil
}
