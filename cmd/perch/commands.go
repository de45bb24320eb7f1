package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajakab/perch/internal/config"
	"github.com/ajakab/perch/internal/storage"
)

// parseRemindAt accepts either a relative duration ("30m", "2h") or an
// absolute RFC 3339 timestamp and returns milliseconds since epoch.
func parseRemindAt(s string, now time.Time) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("reminder duration must be positive: %q", s)
		}
		return now.Add(d).UnixMilli(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	return 0, fmt.Errorf("invalid reminder time %q (want a duration like 30m or an RFC 3339 timestamp)", s)
}

// --- add ---

var addCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Record dropped files on the timeline",
	Long: `Record one or more files as a timeline event.

Examples:
  perch add report.pdf
  perch add photo.jpg scan.png --note "trip receipts"
  perch add invoice.pdf --remind 2h --message "pay this"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		remind, _ := cmd.Flags().GetString("remind")
		message, _ := cmd.Flags().GetString("message")

		remindAt, err := parseRemindAt(remind, time.Now())
		if err != nil {
			return err
		}

		paths := make([]string, len(args))
		for i, a := range args {
			abs, err := filepath.Abs(a)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", a, err)
			}
			paths[i] = abs
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/events/drop", storage.DropEventInput{
			Paths:         paths,
			Note:          note,
			RemindAt:      remindAt,
			RemindMessage: message,
		})
		if err != nil {
			return err
		}

		var detail storage.EventDetail
		if err := decodeJSON(resp, &detail); err != nil {
			return err
		}

		printSuccess("Recorded event %s (%d attachments)", detail.Event.ID, len(detail.Attachments))
		return nil
	},
}

func init() {
	addCmd.Flags().String("note", "", "note attached to the event")
	addCmd.Flags().String("remind", "", "reminder time (duration like 30m, or RFC 3339)")
	addCmd.Flags().String("message", "", "reminder message")
}

// --- note ---

var noteCmd = &cobra.Command{
	Use:   "note <text>",
	Short: "Capture a note or thought on the timeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		remind, _ := cmd.Flags().GetString("remind")
		message, _ := cmd.Flags().GetString("message")

		remindAt, err := parseRemindAt(remind, time.Now())
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/events/text", storage.TextEventInput{
			Note:          strings.Join(args, " "),
			TextContent:   content,
			RemindAt:      remindAt,
			RemindMessage: message,
		})
		if err != nil {
			return err
		}

		var detail storage.EventDetail
		if err := decodeJSON(resp, &detail); err != nil {
			return err
		}

		printSuccess("Captured %s event %s", detail.Event.Type, detail.Event.ID)
		return nil
	},
}

func init() {
	noteCmd.Flags().String("content", "", "longer text body (makes the event a text event)")
	noteCmd.Flags().String("remind", "", "reminder time (duration like 30m, or RFC 3339)")
	noteCmd.Flags().String("message", "", "reminder message")
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List timeline events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(fmt.Sprintf("/events?pageSize=%d", limit))
		if err != nil {
			return err
		}

		var details []storage.EventDetail
		if err := decodeJSON(resp, &details); err != nil {
			return err
		}

		if len(details) == 0 {
			fmt.Println("No events recorded.")
			return nil
		}

		for _, d := range details {
			title := d.Event.Title
			if title == "" {
				title = d.Event.Note
			}
			title = truncate(title, 60)
			extra := ""
			if n := len(d.Attachments); n > 0 {
				extra = fmt.Sprintf(" [%d attachments]", n)
			}
			fmt.Printf("%s  %s  %-7s  %s%s\n",
				colorize(colorCyan, d.Event.ID[:8]),
				time.UnixMilli(d.Event.CreatedAt).Format("2006-01-02 15:04"),
				d.Event.Type,
				title,
				extra,
			)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Int("limit", 20, "maximum number of events to list")
}

// truncate shortens s to max runes, never splitting a multi-byte rune.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// --- delete ---

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a timeline event from listings (attachments are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete("/events/" + args[0])
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted event %s", args[0])
		return nil
	},
}

// --- remind ---

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Manage reminders",
}

var remindListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/reminders")
		if err != nil {
			return err
		}

		var reminders []storage.Reminder
		if err := decodeJSON(resp, &reminders); err != nil {
			return err
		}

		if len(reminders) == 0 {
			fmt.Println("No pending reminders.")
			return nil
		}

		for _, r := range reminders {
			fmt.Printf("%s  %s  %-8s  %s\n",
				colorize(colorCyan, r.ID[:8]),
				time.UnixMilli(r.RemindAt).Format("2006-01-02 15:04"),
				r.Status,
				r.Message,
			)
		}
		return nil
	},
}

var remindSnoozeCmd = &cobra.Command{
	Use:   "snooze <id>",
	Short: "Snooze a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, _ := cmd.Flags().GetInt("minutes")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/reminders/"+args[0]+"/snooze", map[string]int{"minutes": minutes})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Snoozed %s for %d minutes", args[0], minutes)
		return nil
	},
}

var remindDismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Dismiss a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/reminders/"+args[0]+"/dismiss", nil)
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Dismissed %s", args[0])
		return nil
	},
}

func init() {
	remindSnoozeCmd.Flags().Int("minutes", 10, "snooze duration in minutes")
	remindCmd.AddCommand(remindListCmd)
	remindCmd.AddCommand(remindSnoozeCmd)
	remindCmd.AddCommand(remindDismissCmd)
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export [date]",
	Short: "Render the daily digest (default: today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		dateKey := time.Now().Format("2006-01-02")
		if len(args) == 1 {
			dateKey = args[0]
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/exports", map[string]string{
			"dateKey": dateKey,
			"format":  format,
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Exported %s to %s", dateKey, result["path"])
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "md", "output format: md or html")
}

// --- settings ---

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage app settings stored in the database",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/settings")
		if err != nil {
			return err
		}

		var settings map[string]string
		if err := decodeJSON(resp, &settings); err != nil {
			return err
		}

		if len(settings) == 0 {
			fmt.Println("No settings stored.")
			return nil
		}
		for k, v := range settings {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k), v)
		}
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/settings/" + args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result["value"])
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put("/settings/"+args[0], map[string]string{"value": args[1]})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
