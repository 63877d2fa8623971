package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the captioning backend is reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess := newSession(ctx)
	defer sess.Close()

	if err := sess.WaitProbe(ctx); err != nil {
		return err
	}

	v := sess.View()
	if v.UnavailableBanner != "" {
		return errors.New(v.UnavailableBanner)
	}

	fmt.Fprintf(stdout, "%s: %s", cfg.APIURL, v.BackendStatus)
	if v.ModelLoaded != nil {
		fmt.Fprintf(stdout, " (model loaded: %t)", *v.ModelLoaded)
	}
	fmt.Fprintln(stdout)
	return nil
}
