package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/p-blackswan/trio/internal/conversation"
	perrors "github.com/p-blackswan/trio/internal/errors"
	"github.com/p-blackswan/trio/internal/persona"
)

// errTurnFailed is returned after a turn failure has already been printed.
var errTurnFailed = errors.New("turn failed")

// Styles holds the terminal styles for one theme.
type Styles struct {
	Title  lipgloss.Style
	User   lipgloss.Style
	System lipgloss.Style
	Muted  lipgloss.Style
	Error  lipgloss.Style
	Good   lipgloss.Style

	personas map[persona.ID]lipgloss.Style
}

// NewStyles returns styles for the "light" or "dark" theme.
func NewStyles(theme string) Styles {
	muted, text := lipgloss.Color("243"), lipgloss.Color("235")
	if theme == "dark" {
		muted, text = lipgloss.Color("245"), lipgloss.Color("252")
	}
	s := Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(text),
		User:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6C5CE7")),
		System:   lipgloss.NewStyle().Italic(true).Foreground(muted),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Good:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		personas: make(map[persona.ID]lipgloss.Style),
	}
	for _, id := range persona.All() {
		s.personas[id] = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(id.Profile().Color))
	}
	return s
}

// Persona returns the header style of a persona.
func (s Styles) Persona(id persona.ID) lipgloss.Style {
	return s.personas[id]
}

// printer serializes writes from command code and lane goroutines.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	styles Styles
}

func newPrinter(w io.Writer, styles Styles) *printer {
	return &printer{w: w, styles: styles}
}

func (p *printer) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(s string) {
	p.printf("%s\n", s)
}

func (p *printer) reply(r conversation.Reply, team bool) {
	prof := r.Persona.Profile()
	header := p.styles.Persona(r.Persona).Render(fmt.Sprintf("%s (%s)", prof.Name, prof.Role))
	if team {
		header += " " + p.styles.Muted.Render("[team]")
	}
	p.printf("%s\n%s\n\n", header, strings.TrimSpace(r.Text))
}

func (p *printer) failure(err error) {
	p.println(p.styles.Error.Render("error: ") + describe(err))
}

// describe turns an error into a user-facing hint.
func describe(err error) string {
	var ge *perrors.GatewayError
	switch {
	case errors.As(err, &ge) && ge.Kind == perrors.GatewayAuth:
		return err.Error() + " (check api_key with `trio config set api_key ...`)"
	case errors.As(err, &ge) && ge.Kind == perrors.GatewayTimeout:
		return err.Error() + " (raise TRIO_TURN_TIMEOUT to wait longer)"
	case errors.Is(err, perrors.ErrBusy):
		return err.Error() + " (wait for the current reply)"
	default:
		return err.Error()
	}
}
