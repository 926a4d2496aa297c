package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	perrors "github.com/p-blackswan/trio/internal/errors"
	"github.com/p-blackswan/trio/internal/persona"
	"github.com/p-blackswan/trio/internal/store"
)

const replHelp = `Type a message to talk to the current assistant, or:
  /spark [msg]     switch to Spark (and send msg)
  /proto [msg]     switch to Proto (and send msg)
  /team <msg>      ask Spark, then Proto
  /recover         what was I doing?
  /capture <text>  quick capture
  /task <desc>     add a tiny task
  /tasks           list open tasks
  /done <id> [n]   complete a task with dopamine score n (default 8)
  /insights        recent captures
  /history         current assistant's memory
  /stats           project counters
  /project [id]    list projects or switch to one
  /new <title>     start a project
  /quit`

func newReplCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				s := &replSession{app: a, target: persona.Spark}
				if p, err := a.project(r.projectID); err == nil {
					s.project = p
				} else if !errors.Is(err, perrors.ErrValidation) {
					return err
				}
				return s.run(cmd.Context(), cmd.InOrStdin())
			})
		},
	}
}

type replSession struct {
	app     *App
	project *store.Project
	target  persona.ID
}

func (s *replSession) prompt() {
	name := "no project"
	if s.project != nil {
		name = s.project.Title
	}
	st := s.app.out.styles
	s.app.out.printf("%s %s> ", st.Muted.Render(name), st.Persona(s.target).Render(s.target.String()))
}

func (s *replSession) run(ctx context.Context, in io.Reader) error {
	out := s.app.out
	if s.project == nil {
		out.println("No project yet. Start one with /new <title>.")
	}
	out.println(out.styles.Muted.Render("/help for commands"))

	scanner := bufio.NewScanner(in)
	for {
		s.prompt()
		if !scanner.Scan() {
			out.println("")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		quit, err := s.handle(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, errTurnFailed) {
				out.failure(err)
			}
		}
		if quit {
			return nil
		}
	}
}

func (s *replSession) handle(ctx context.Context, line string) (bool, error) {
	a := s.app
	if !strings.HasPrefix(line, "/") {
		return false, s.send(ctx, s.target, line)
	}
	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help":
		a.out.println(replHelp)
		return false, nil
	case "spark", "proto":
		id, _ := persona.Parse(cmd)
		s.target = id
		if rest == "" {
			return false, nil
		}
		return false, s.send(ctx, id, rest)
	case "new":
		p, intro, err := a.Orchestrator.StartProject(rest, "", 7)
		if err != nil {
			return false, err
		}
		s.project = p
		a.out.printf("Created project %d: %s\n\n", p.ID, p.Title)
		return false, a.await(ctx, intro)
	case "project":
		return false, s.switchProject(rest)
	}

	if s.project == nil {
		return false, perrors.Validationf("no project selected; use /new <title>")
	}
	pid := s.project.ID

	switch cmd {
	case "team":
		turn, err := a.Orchestrator.SendTeamTurn(pid, rest)
		if err != nil {
			return false, err
		}
		return false, a.await(ctx, turn)
	case "recover":
		turn, err := a.Orchestrator.RecoverContext(pid)
		if err != nil {
			return false, err
		}
		return false, a.await(ctx, turn)
	case "capture":
		_, followUp, err := a.Orchestrator.Capture(pid, rest)
		if err != nil {
			return false, err
		}
		a.out.println(a.out.styles.Good.Render("Captured."))
		return false, a.await(ctx, followUp)
	case "task":
		t, err := a.Orchestrator.AddTask(pid, rest, "")
		if err != nil {
			return false, err
		}
		a.out.printf("Added task %d\n", t.ID)
		return false, nil
	case "tasks":
		tasks, err := a.Orchestrator.OpenTasks(pid)
		if err != nil {
			return false, err
		}
		for _, t := range tasks {
			a.out.printf("%4d  %-6s %s\n", t.ID, t.Size, t.Description)
		}
		return false, nil
	case "done":
		return false, s.done(ctx, rest)
	case "insights":
		insights, err := a.Orchestrator.RecentInsights(pid, 5)
		if err != nil {
			return false, err
		}
		for _, in := range insights {
			a.out.printf("%s  %s\n", a.out.styles.Muted.Render(formatMillis(in.CreatedAt)), in.Content)
		}
		return false, nil
	case "history":
		entries, err := a.Orchestrator.Transcript(pid, s.target, 0)
		if err != nil {
			return false, err
		}
		for _, e := range entries {
			a.out.println(a.entryLine(e, s.target))
		}
		return false, nil
	case "stats":
		return false, a.printStats(s.project, rest == "--metrics")
	default:
		return false, perrors.Validationf("unknown command /%s (try /help)", cmd)
	}
}

func (s *replSession) send(ctx context.Context, id persona.ID, text string) error {
	if s.project == nil {
		return perrors.Validationf("no project selected; use /new <title>")
	}
	turn, err := s.app.Orchestrator.SendPersonaTurn(s.project.ID, id, text)
	if err != nil {
		return err
	}
	return s.app.await(ctx, turn)
}

func (s *replSession) switchProject(arg string) error {
	a := s.app
	if arg == "" {
		projects, err := a.Orchestrator.Projects(20)
		if err != nil {
			return err
		}
		for _, p := range projects {
			a.out.printf("%4d  %s\n", p.ID, p.Title)
		}
		return nil
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return perrors.Validationf("project id %q is not a number", arg)
	}
	p, err := a.project(id)
	if err != nil {
		return err
	}
	s.project = p
	a.out.printf("Switched to %s\n", p.Title)
	return nil
}

func (s *replSession) done(ctx context.Context, arg string) error {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return perrors.Validationf("usage: /done <task-id> [score]")
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return perrors.Validationf("task id %q is not a number", fields[0])
	}
	score := 8
	if len(fields) > 1 {
		if score, err = strconv.Atoi(fields[1]); err != nil {
			return perrors.Validationf("score %q is not a number", fields[1])
		}
	}
	celebration, err := s.app.Orchestrator.FinishTask(id, score)
	if err != nil {
		return err
	}
	s.app.out.printf("%s Task %d done.\n\n", s.app.out.styles.Good.Render("Done!"), id)
	return s.app.await(ctx, celebration)
}
