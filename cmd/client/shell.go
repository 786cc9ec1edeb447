package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/client/goals"
	"github.com/atinyakov/SkillMap/internal/client/view"
	"github.com/atinyakov/SkillMap/internal/models"
)

const shellHelp = `Commands:
  goals                     list goals
  show                      show the selected goal
  select <id>               select a goal
  new <resume.pdf> <title>  generate a roadmap from a résumé
  rename <id> <title>       rename a goal
  delete <id>               delete a goal
  toggle <step>             mark a step of the selected goal done or not done
  refresh                   reload goals from the server
  dismiss                   clear the last error
  logout                    end the session
  help                      show this help
  exit                      leave the shell`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive goal tracker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		cmd.SetContext(ctx)
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runShell(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// shell is one interactive session over a wired app.
type shell struct {
	app *app
	out io.Writer
	// busy is set while a typed command runs; changes seen outside a
	// command come from the session watcher and are rendered at once.
	busy atomic.Bool
}

func runShell(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	if !a.session.IsAuthenticated() {
		return errors.New("not logged in, run: skillmap login <username>")
	}
	sh := &shell{app: a, out: out}

	unsubscribe := a.goals.Subscribe(func(st goals.State) {
		if !sh.busy.Load() {
			fmt.Fprintln(out)
			view.Render(out, st)
		}
	})
	defer unsubscribe()

	a.session.OnLogout(func() {
		if !sh.busy.Load() {
			fmt.Fprintln(out, "\nSession ended. Log in again with: skillmap login <username>")
		}
	})
	if err := a.session.Watch(ctx); err != nil {
		a.log.Warn("session watcher unavailable", zap.Error(err))
	}

	sh.busy.Store(true)
	sh.exec(ctx, []string{"goals"})
	sh.busy.Store(false)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s> ", a.session.Username())
		if !scanner.Scan() {
			return scanner.Err()
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}

		sh.busy.Store(true)
		sh.exec(ctx, args)
		sh.busy.Store(false)

		if !a.session.IsAuthenticated() {
			fmt.Fprintln(out, "Session ended. Log in again with: skillmap login <username>")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// exec runs one shell command and renders its outcome.
func (sh *shell) exec(ctx context.Context, args []string) {
	a := sh.app
	var err error
	switch cmd := args[0]; cmd {
	case "help":
		fmt.Fprintln(sh.out, shellHelp)
		return
	case "goals":
		// A failure is recorded in the store and shown by Status.
		_ = a.goals.FetchAll(ctx)
		view.Status(sh.out, a.goals.State())
		view.Goals(sh.out, a.goals.State())
		return
	case "show":
	case "select":
		if len(args) != 2 {
			fmt.Fprintln(sh.out, "Usage: select <id>")
			return
		}
		err = a.goals.SelectGoal(args[1])
	case "new":
		if len(args) < 3 {
			fmt.Fprintln(sh.out, "Usage: new <resume.pdf> <title>")
			return
		}
		var resume *models.Resume
		resume, err = readResume(args[1])
		if err == nil {
			fmt.Fprintln(sh.out, "Analyzing résumé, this can take a few minutes…")
			_, err = a.goals.CreateFromResume(ctx, strings.Join(args[2:], " "), resume)
		}
	case "rename":
		if len(args) < 3 {
			fmt.Fprintln(sh.out, "Usage: rename <id> <title>")
			return
		}
		err = a.goals.RenameGoal(ctx, args[1], strings.Join(args[2:], " "))
	case "delete":
		if len(args) != 2 {
			fmt.Fprintln(sh.out, "Usage: delete <id>")
			return
		}
		err = a.goals.DeleteGoal(ctx, args[1])
	case "toggle":
		if len(args) != 2 {
			fmt.Fprintln(sh.out, "Usage: toggle <step>")
			return
		}
		var step int
		step, err = strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(sh.out, "Invalid step %q\n", args[1])
			return
		}
		err = a.goals.ToggleStep(ctx, step)
	case "refresh":
		err = a.goals.Refresh(ctx)
	case "dismiss":
		a.goals.DismissError()
	case "logout":
		err = a.session.Logout(ctx)
	default:
		fmt.Fprintf(sh.out, "Unknown command %q, type \"help\"\n", cmd)
		return
	}

	st := a.goals.State()
	if err != nil && st.Err == nil {
		// Failures not recorded by the store, such as an unknown select.
		fmt.Fprintf(sh.out, "error: %v\n", userError(err))
	}
	view.Render(sh.out, st)
}

func readResume(path string) (*models.Resume, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read résumé: %w", err)
	}
	return &models.Resume{Filename: filepath.Base(path), Content: content}, nil
}
