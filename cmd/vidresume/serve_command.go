package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidresume/internal/api"
	"vidresume/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var start bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stage status and control over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.openPipeline()
			if err != nil {
				return err
			}
			defer env.Close()

			runCtx := cmd.Context()
			addr := strings.TrimSpace(bind)
			if addr == "" {
				addr = env.cfg.Paths.APIBind
			}
			server := api.NewServer(runCtx, env.coord, env.store, logging.NewComponentLogger(env.logger, "api"))
			if err := server.Start(runCtx, addr); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", server.Addr())

			if start {
				if err := env.coord.StartAll(runCtx); err != nil {
					return err
				}
			}
			<-runCtx.Done()
			env.stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to paths.api_bind)")
	cmd.Flags().BoolVar(&start, "start", false, "Start every stage immediately")
	return cmd
}
