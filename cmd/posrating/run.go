package main

import (
	"context"

	"github.com/spf13/cobra"
)

// withService builds the app and service for one command run and tears them
// down afterwards, draining queued reports.
func withService(cmd *cobra.Command, opts serviceOptions, fn func(ctx context.Context, a *app) error) (err error) {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := shutdownContext()
		defer cancel()
		if cerr := a.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctx := cmd.Context()
	if err := a.initService(ctx, opts); err != nil {
		return err
	}
	return fn(ctx, a)
}
