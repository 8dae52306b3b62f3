package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sw/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, _ := cmd.Flags().GetString("plan")
			parallelism, _ := cmd.Flags().GetInt("jobs")
			keepGoing, _ := cmd.Flags().GetBool("keep-going")
			killOnCancel, _ := cmd.Flags().GetBool("kill-on-cancel")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			return c.app.Run(cmd.Context(), app.RunOptions{
				PlanPath:     plan,
				Parallelism:  parallelism,
				KeepGoing:    keepGoing,
				KillOnCancel: killOnCancel,
				Timeout:      timeout,
			})
		},
	}

	cmd.Flags().IntP("jobs", "j", 0, "Number of parallel jobs (0 = hardware concurrency)")
	cmd.Flags().BoolP("keep-going", "k", false, "Keep building commands unaffected by failures")
	cmd.Flags().Bool("kill-on-cancel", false, "Kill running commands on interrupt")
	cmd.Flags().Duration("timeout", 0, "Per-command deadline")

	return cmd
}
