package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/editor-activity-metrics/internal/config"
	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
	"github.com/kurihiro0119/editor-activity-metrics/pkg/client"
)

var (
	endpoint   string
	outputJSON bool

	// reminder add flags
	reminderTitle    string
	reminderMessage  string
	reminderInterval int64
	reminderMinWPM   float64
	reminderMaxWPM   float64
	reminderLangs    string
)

var rootCmd = &cobra.Command{
	Use:   "activity-metrics",
	Short: "Editor activity metrics tool",
	Long: `A CLI for the editor-activity-metrics daemon.

Inspect the current session's metrics, drive the pomodoro timer, manage
wellbeing reminders and force a sync to the backend.`,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Display the daemon's activity, sync and pomodoro status.`,
	RunE:  runStatus,
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show session metrics",
	Long:  `Display the current session's aggregated metrics.`,
	RunE:  runMetrics,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Force a sync now",
	Long:  `Trigger an immediate forced sync of pending metrics to the backend.`,
	RunE:  runSync,
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Manage reminders",
	Long:  `List, add and remove wellbeing reminders.`,
	RunE:  runRemindersList,
}

var remindersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a custom reminder",
	RunE:  runRemindersAdd,
}

var remindersRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a custom reminder",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemindersRemove,
}

var pomodoroCmd = &cobra.Command{
	Use:   "pomodoro",
	Short: "Toggle the pomodoro timer",
	Long:  `Start the pending pomodoro phase, or stop the timer while it is running.`,
	RunE:  runPomodoro,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "daemon endpoint (default from API_HOST/API_PORT)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	remindersAddCmd.Flags().StringVar(&reminderTitle, "title", "", "reminder title")
	remindersAddCmd.Flags().StringVar(&reminderMessage, "message", "", "reminder message")
	remindersAddCmd.Flags().Int64Var(&reminderInterval, "interval", 3600, "interval in seconds")
	remindersAddCmd.Flags().Float64Var(&reminderMinWPM, "min-wpm", 0, "only fire above this typing speed")
	remindersAddCmd.Flags().Float64Var(&reminderMaxWPM, "max-wpm", 0, "only fire below this typing speed")
	remindersAddCmd.Flags().StringVar(&reminderLangs, "languages", "", "comma-separated language allow-list")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(remindersCmd)
	remindersCmd.AddCommand(remindersAddCmd)
	remindersCmd.AddCommand(remindersRemoveCmd)
	rootCmd.AddCommand(pomodoroCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getClient() (*client.Client, error) {
	if endpoint != "" {
		return client.NewClient(endpoint), nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return client.NewClient(fmt.Sprintf("http://%s:%s", cfg.APIHost, cfg.APIPort)), nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	status, err := c.GetStatus()
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(status)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"Active", fmt.Sprintf("%t", status.Active)})
	table.Append([]string{"Paused", fmt.Sprintf("%t", status.Paused)})
	table.Append([]string{"Last Activity", status.LastActivity.Format(time.RFC3339)})
	table.Append([]string{"Typing Speed", fmt.Sprintf("%.1f WPM", status.TypingSpeed)})
	table.Append([]string{"Session Duration", (time.Duration(status.SessionDuration) * time.Second).String()})
	table.Append([]string{"Sync Enabled", fmt.Sprintf("%t", status.Sync.Enabled)})
	table.Append([]string{"Pending Batches", fmt.Sprintf("%d", status.Sync.PendingItems)})
	table.Append([]string{"Sync Failures", fmt.Sprintf("%d", status.Sync.ConsecutiveFailures)})
	table.Append([]string{"Pomodoro", pomodoroSummary(status.Pomodoro)})
	table.Render()

	return nil
}

func runMetrics(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	metrics, err := c.GetMetrics()
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(metrics)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Lines Added", fmt.Sprintf("%d", metrics.Code.Lines.Added)})
	table.Append([]string{"Lines Removed", fmt.Sprintf("%d", metrics.Code.Lines.Removed)})
	table.Append([]string{"Files Modified", fmt.Sprintf("%d", metrics.Code.Files.Modified)})
	table.Append([]string{"Files Created", fmt.Sprintf("%d", metrics.Code.Files.Created)})
	table.Append([]string{"Files Deleted", fmt.Sprintf("%d", metrics.Code.Files.Deleted)})
	table.Append([]string{"Focus Time", (time.Duration(metrics.Productivity.FocusTime) * time.Second).String()})
	table.Append([]string{"Typing Speed", fmt.Sprintf("%.1f WPM", metrics.Health.TypingStats.Speed)})
	table.Render()

	if len(metrics.Code.FileTypes) > 0 {
		fmt.Println("\nFile types:")
		types := tablewriter.NewWriter(os.Stdout)
		types.SetHeader([]string{"Type", "Changes"})
		names := make([]string, 0, len(metrics.Code.FileTypes))
		for name := range metrics.Code.FileTypes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			types.Append([]string{name, fmt.Sprintf("%d", metrics.Code.FileTypes[name])})
		}
		types.Render()
	}

	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	status, err := c.ForceSync()
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(status)
	}

	if status.LastError != "" {
		fmt.Printf("Sync finished with error: %s (%d items still pending)\n", status.LastError, status.PendingItems)
	} else {
		fmt.Printf("Sync complete (%d items pending)\n", status.PendingItems)
	}
	return nil
}

func runRemindersList(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	reminders, err := c.ListReminders()
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(reminders)
	}

	sort.Slice(reminders, func(i, j int) bool { return reminders[i].ID < reminders[j].ID })

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Title", "Interval", "Enabled", "Last Triggered"})
	for _, r := range reminders {
		last := "-"
		if r.LastTriggered != nil {
			last = r.LastTriggered.Format(time.RFC3339)
		}
		table.Append([]string{
			r.ID,
			r.Title,
			r.IntervalDuration().String(),
			fmt.Sprintf("%t", r.Enabled),
			last,
		})
	}
	table.Render()

	return nil
}

func runRemindersAdd(cmd *cobra.Command, args []string) error {
	if reminderTitle == "" {
		return fmt.Errorf("--title is required")
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	def := domain.ReminderDefinition{
		Title:    reminderTitle,
		Message:  reminderMessage,
		Interval: reminderInterval,
		Enabled:  true,
	}
	conditions := &domain.ReminderConditions{}
	hasConditions := false
	if reminderMinWPM > 0 {
		v := reminderMinWPM
		conditions.MinTypingSpeed = &v
		hasConditions = true
	}
	if reminderMaxWPM > 0 {
		v := reminderMaxWPM
		conditions.MaxTypingSpeed = &v
		hasConditions = true
	}
	if reminderLangs != "" {
		conditions.Languages = strings.Split(reminderLangs, ",")
		hasConditions = true
	}
	if hasConditions {
		def.Conditions = conditions
	}

	created, err := c.CreateReminder(def)
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(created)
	}
	fmt.Printf("Created reminder %s\n", created.ID)
	return nil
}

func runRemindersRemove(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	if err := c.DeleteReminder(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed reminder %s\n", args[0])
	return nil
}

func runPomodoro(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	state, err := c.TogglePomodoro()
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(state)
	}
	fmt.Println(pomodoroSummary(*state))
	return nil
}

func pomodoroSummary(s domain.PomodoroState) string {
	if !s.IsRunning {
		return fmt.Sprintf("stopped (next: %s, %d sessions done)", s.Phase, s.SessionsCompleted)
	}
	left := time.Duration(s.TimeLeft) * time.Second
	return fmt.Sprintf("%s, %s left (%d sessions done)", s.Phase, left, s.SessionsCompleted)
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
