package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fpang/captioncraft/internal/cli"
	"github.com/fpang/captioncraft/internal/filehandler"
	"github.com/fpang/captioncraft/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive captioning session in the terminal",
	Long: `Shell starts an interactive session. Stage an image by path or with the
native picker, then generate its caption.

Commands:
  stage <path>   stage an image file
  pick           choose an image with the native file dialog
  generate       request a caption for the staged image
  dismiss        clear the current error message
  status         show the session state
  help           show this list
  quit           leave the shell`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

const shellHelp = `Commands: stage <path>, pick, generate, dismiss, status, help, quit`

func runShell(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()

	sess := newSession(ctx)
	defer sess.Close()

	rl, err := readline.New("caption> ")
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	startupLogger("shell", start).Log()
	out := rl.Stdout()
	fmt.Fprintln(out, shellHelp)

	// Report the probe outcome once it arrives.
	go func() {
		if err := sess.WaitProbe(ctx); err == nil {
			v := sess.View()
			if v.UnavailableBanner != "" {
				fmt.Fprintf(out, "!! %s\n", v.UnavailableBanner)
			} else {
				fmt.Fprintf(out, "Backend: %s\n", v.BackendStatus)
			}
		}
	}()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil { // io.EOF
			break
		}

		command, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToLower(command) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "help", "?":
			fmt.Fprintln(out, shellHelp)
			continue
		case "stage":
			if arg == "" {
				fmt.Fprintln(out, "usage: stage <path>")
				continue
			}
			stagePath(sess, arg)
		case "pick":
			path, err := cli.PickImage()
			if errors.Is(err, cli.ErrPickCanceled) {
				continue
			}
			if err != nil {
				fmt.Fprintf(out, "picker failed: %v\n", err)
				continue
			}
			stagePath(sess, path)
		case "generate":
			if !sess.Generate() {
				fmt.Fprintln(out, "Nothing to do: stage an image first, or wait for the current request.")
				break
			}
			fmt.Fprintln(out, session.LabelGenerating)
			if err := sess.Wait(ctx); err != nil {
				return err
			}
		case "dismiss":
			sess.DismissNotice()
		case "status":
		default:
			fmt.Fprintf(out, "unknown command %q\n%s\n", command, shellHelp)
			continue
		}

		cli.RenderView(out, sess.View())
	}
	return nil
}

// stagePath turns a path into a candidate; a path that cannot be loaded is
// reported as an unreadable file.
func stagePath(sess *session.Session, path string) {
	resolved, err := cli.ResolveFile(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Path rejected")
		sess.Submit(nil, []session.Rejection{{Name: path, Message: session.MessageUnreadable}})
		return
	}
	candidate, err := filehandler.CandidateFromPath(resolved)
	if err != nil {
		sess.Submit(nil, []session.Rejection{{Name: path, Message: session.MessageUnreadable}})
		return
	}
	sess.Submit([]filehandler.Candidate{candidate}, nil)
}
