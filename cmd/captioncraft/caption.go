package main

import (
	"errors"
	"fmt"

	"github.com/fpang/captioncraft/internal/cli"
	"github.com/fpang/captioncraft/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	pickFlag    bool
	verboseFlag bool
)

var captionCmd = &cobra.Command{
	Use:   "caption [file]",
	Short: "Caption a single image and print the result",
	Long: `Caption waits for the backend health probe, stages the image, requests
a caption and prints it. Use --pick to choose the file with the native
file dialog instead of passing a path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCaption,
}

func init() {
	captionCmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose the image with the native file dialog")
	captionCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Print image details along with the caption")
}

func runCaption(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var path string
	switch {
	case len(args) == 1:
		path = args[0]
	case pickFlag:
		picked, err := cli.PickImage()
		if err != nil {
			return err
		}
		path = picked
	default:
		return errors.New("pass an image path or --pick")
	}

	sess := newSession(ctx)
	defer sess.Close()

	if err := sess.WaitProbe(ctx); err != nil {
		return err
	}

	stagePath(sess, path)
	if st := sess.Snapshot(); st.Notice != nil {
		return errors.New(st.Notice.Message)
	}

	if !sess.Generate() {
		if msg := sess.View().UnavailableBanner; msg != "" {
			return errors.New(msg)
		}
		return errors.New("caption request could not be started")
	}
	if err := sess.Wait(ctx); err != nil {
		return err
	}

	st := sess.Snapshot()
	if st.Request.Phase != session.Succeeded {
		return errors.New(st.Request.Message)
	}

	log.Debug().Str("file", st.Image.Name).Msg("Caption printed")
	if verboseFlag {
		cli.RenderView(stdout, sess.View())
		return nil
	}
	fmt.Fprintln(stdout, st.Request.Caption)
	return nil
}
