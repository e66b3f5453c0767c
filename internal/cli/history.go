package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/pm-console/internal/observability"
)

var (
	historySince   string
	historyType    string
	historyLevel   string
	historySummary bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the audit log of console changes",
	Long: `Show the changes made through this console and the actions it refused.

Events are read from the audit log in the console home. --since accepts
durations such as 24h or 7d.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AuditLog == nil {
			return fmt.Errorf("audit log not initialized")
		}
		since, err := observability.ParseSince(historySince, time.Now())
		if err != nil {
			return err
		}
		if historySummary {
			return printSummary(cmd, since)
		}

		events, err := AuditLog.Read(observability.EventFilter{
			Since: &since,
			Type:  historyType,
			Level: strings.ToUpper(historyLevel),
		})
		if err != nil {
			return fmt.Errorf("reading audit log: %w", err)
		}
		w := cmd.OutOrStdout()
		if events == nil {
			events = []observability.Event{}
		}
		if ok, err := writeStructured(w, events); ok {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(w, "No events found.")
			return nil
		}
		rows := make([][]string, len(events))
		for i, e := range events {
			rows[i] = []string{e.Time.Local().Format("2006-01-02 15:04:05"), e.Level, e.Type, e.Message}
		}
		printTable(w, []string{"Time", "Level", "Type", "Message"}, rows)
		return nil
	},
}

func printSummary(cmd *cobra.Command, since time.Time) error {
	if Summarizer == nil {
		return fmt.Errorf("summarizer not initialized")
	}
	s, err := Summarizer.Summarize(since)
	if err != nil {
		return fmt.Errorf("summarizing audit log: %w", err)
	}
	w := cmd.OutOrStdout()
	if ok, err := writeStructured(w, s); ok {
		return err
	}
	fmt.Fprintf(w, "Events since %s: %d (%d refused)\n", since.Local().Format("2006-01-02 15:04"), s.EventCount, s.Denied)
	if s.EventCount == 0 {
		return nil
	}
	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	rows := make([][]string, len(types))
	for i, t := range types {
		rows[i] = []string{t, fmt.Sprint(s.ByType[t])}
	}
	fmt.Fprintln(w)
	printTable(w, []string{"Type", "Count"}, rows)
	return nil
}

func init() {
	historyCmd.Flags().StringVar(&historySince, "since", "7d", "how far back to read")
	historyCmd.Flags().StringVar(&historyType, "type", "", "only events of this type (e.g. task.reassigned)")
	historyCmd.Flags().StringVar(&historyLevel, "level", "", "only events of this level (info, warn)")
	historyCmd.Flags().BoolVar(&historySummary, "summary", false, "print counts per event type")
	rootCmd.AddCommand(historyCmd)
}
