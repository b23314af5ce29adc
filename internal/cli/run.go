package cli

import (
	"fmt"
	"io"

	"github.com/specialistvlad/sweepgrid/internal/app"
	"github.com/specialistvlad/sweepgrid/internal/hclplan"
	"github.com/spf13/cobra"
)

func newRunCmd(outW, errW io.Writer) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "run [PLAN_PATH]",
		Short: "Run a sweep plan and write the results",
		Long: `Runs the sweep described by PLAN_PATH (a .hcl file or a directory of them).

Interrupting the run stops it at the next step boundary; the partial result
is still written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(args)
			if err != nil {
				return err
			}
			a, err := app.NewApp(errW, cfg, hclplan.NewLoader())
			if err != nil {
				return err
			}
			res, err := a.Run(cmd.Context())
			if res != nil {
				status := "complete"
				if res.Aborted {
					status = "aborted"
				}
				fmt.Fprintf(outW, "run %s %s: %d points, location %s\n", res.ID, status, res.Points, res.Handle.Location)
				for _, u := range res.Handle.URLs {
					fmt.Fprintf(outW, "uploaded %s\n", u)
				}
			}
			return err
		},
	}
	f.register(cmd, true)
	return cmd
}

func newPlanCmd(outW, errW io.Writer) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "plan [PLAN_PATH]",
		Short: "Show the loop structure and the arrays a plan would produce",
		Long: `Binds the plan to the station and allocates its result arrays without
setting or reading any instrument.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(args)
			if err != nil {
				return err
			}
			a, err := app.NewApp(errW, cfg, hclplan.NewLoader())
			if err != nil {
				return err
			}
			plan, set, err := a.Plan(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(outW, plan.String())
			fmt.Fprintln(outW, set.String())
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}
