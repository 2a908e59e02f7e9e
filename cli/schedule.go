package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"contentpilot/scheduler"
	"contentpilot/types"
)

// previewFile is the YAML input of schedule preview
type previewFile struct {
	Schedule types.ScheduleSpec `yaml:"schedule"`
	Anchor   *time.Time         `yaml:"anchor,omitempty"`
	Items    []previewItem      `yaml:"items"`
}

type previewItem struct {
	ID           string    `yaml:"id"`
	Title        string    `yaml:"title"`
	Priority     int       `yaml:"priority"`
	QualityScore float64   `yaml:"quality_score"`
	CreatedAt    time.Time `yaml:"created_at"`
}

var (
	previewPath   string
	previewStrict bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Inspect publication schedules",
}

var schedulePreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the dates a backlog would get, without touching any store",
	Long: `Compute a schedule from a YAML file holding a schedule spec, an optional
anchor time and a backlog.

Example file:
  schedule:
    frequency: three_weekly
    time_of_day: "09:00"
    items_per_run: 2
  anchor: 2025-03-13T10:00:00Z
  items:
    - {id: a, title: "Rooftop solar", priority: 3}
    - {id: b, title: "Heat pumps", priority: 1}`,
	RunE: runSchedulePreview,
}

var rescheduleCmd = &cobra.Command{
	Use:   "reschedule <project-id>",
	Short: "Recompute and store the dates of a project's backlog",
	Args:  cobra.ExactArgs(1),
	RunE:  runReschedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd, rescheduleCmd)
	scheduleCmd.AddCommand(schedulePreviewCmd)
	schedulePreviewCmd.Flags().StringVarP(&previewPath, "file", "f", "", "YAML file with schedule, anchor and items")
	schedulePreviewCmd.Flags().BoolVar(&previewStrict, "strict", false, "reject specs that would otherwise fall back to defaults")
	_ = schedulePreviewCmd.MarkFlagRequired("file")
}

func runSchedulePreview(cmd *cobra.Command, _ []string) error {
	raw, err := os.ReadFile(previewPath)
	if err != nil {
		return fmt.Errorf("read preview file: %w", err)
	}
	assignments, err := previewSchedule(raw, previewStrict, time.Now())
	if err != nil {
		return err
	}
	return printAssignments(cmd.OutOrStdout(), assignments)
}

// previewSchedule decodes a preview file and computes its schedule
func previewSchedule(raw []byte, strict bool, now time.Time) ([]scheduler.Assignment, error) {
	var in previewFile
	if err := yaml.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode preview file: %w", err)
	}
	in.Schedule.Frequency = types.ParseFrequency(string(in.Schedule.Frequency))
	if err := in.Schedule.Validate(strict); err != nil {
		return nil, err
	}

	anchor := now
	if in.Anchor != nil {
		anchor = *in.Anchor
	}
	backlog := make([]*types.ContentItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("preview item %q has no id", it.Title)
		}
		backlog = append(backlog, &types.ContentItem{
			ID:           it.ID,
			Title:        it.Title,
			Priority:     it.Priority,
			QualityScore: it.QualityScore,
			Status:       types.StatusIdea,
			CreatedAt:    it.CreatedAt,
		})
	}
	return scheduler.ComputeSchedule(in.Schedule, backlog, anchor), nil
}

func runReschedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	assignments, err := a.scheduler().Reschedule(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printAssignments(cmd.OutOrStdout(), assignments)
}

func printAssignments(w io.Writer, assignments []scheduler.Assignment) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCHEDULED FOR\tITEM\tTITLE")
	for _, a := range assignments {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ScheduledFor.Format(time.RFC3339), a.Item.ID, a.Item.Title)
	}
	return tw.Flush()
}
