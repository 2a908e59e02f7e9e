package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var runOwner string

var runCmd = &cobra.Command{
	Use:   "run <item-id>",
	Short: "Generate one content item now and print the finished job",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runOwner, "owner", "", "owner id recorded on the job")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.pipeline(cmd.Context())
	if err != nil {
		return err
	}

	job, runErr := orch.RunPipeline(cmd.Context(), args[0], runOwner)
	if job != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(job); err != nil {
			return err
		}
	}
	// A failed job is printed above; the stage error becomes the exit status
	return runErr
}
