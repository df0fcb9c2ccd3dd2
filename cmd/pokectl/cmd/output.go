package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printTargetTable(targets []domain.TrackedTarget) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID\tURL\tKIND\tCHANNEL\tINTERVAL\tACTIVE\n")
	for i := range targets {
		t := &targets[i]
		interval := "-"
		if t.Interval > 0 {
			interval = t.Interval.String()
		}
		tw.writef("%s\t%s\t%s\t%d\t%s\t%v\n",
			t.ID,
			truncate(t.URL, 60),
			t.Kind,
			t.ChannelID,
			interval,
			t.Active,
		)
	}
	return tw.finish()
}

func printTargetDetail(t *domain.TrackedTarget) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID:\t%s\n", t.ID)
	tw.writef("URL:\t%s\n", t.URL)
	tw.writef("Kind:\t%s\n", t.Kind)
	tw.writef("Channel:\t%d\n", t.ChannelID)
	if t.GuildID != 0 {
		tw.writef("Guild:\t%d\n", t.GuildID)
	}
	if t.Interval > 0 {
		tw.writef("Interval:\t%s\n", t.Interval)
	}
	if len(t.Mentions) > 0 {
		tw.writef("Mentions:\t%v\n", t.Mentions)
	}
	tw.writef("Active:\t%v\n", t.Active)
	tw.writef("Created:\t%s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	return tw.finish()
}

func printThresholdTable(thresholds []domain.PriceThreshold) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("KEYWORD\tMAX PRICE\n")
	for i := range thresholds {
		tw.writef("%s\t€%.2f\n", thresholds[i].Keyword, thresholds[i].MaxPrice)
	}
	return tw.finish()
}

func printStatusTable(statuses []domain.TargetStatus) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("TARGET\tURL\tACTIVE\tCHECKS\tSUCCESS\tERRORS\tLAST CHECK\n")
	for i := range statuses {
		s := &statuses[i]
		lastCheck := "-"
		if s.LastCheck != nil {
			lastCheck = s.LastCheck.Format("2006-01-02 15:04:05")
		}
		tw.writef("%s\t%s\t%v\t%d\t%.0f%%\t%d\t%s\n",
			s.TargetID,
			truncate(s.URL, 50),
			s.Active,
			s.Checks,
			s.SuccessRate*100,
			s.ErrorCount,
			lastCheck,
		)
	}
	return tw.finish()
}

func printStatusDetail(s *domain.TargetStatus) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("Target:\t%s\n", s.TargetID)
	tw.writef("URL:\t%s\n", s.URL)
	tw.writef("Active:\t%v\n", s.Active)
	tw.writef("Checks:\t%d\n", s.Checks)
	tw.writef("Successes:\t%d\n", s.Successes)
	tw.writef("Success Rate:\t%.1f%%\n", s.SuccessRate*100)
	tw.writef("Errors:\t%d\n", s.ErrorCount)
	if s.LastCheck != nil {
		tw.writef("Last Check:\t%s\n", s.LastCheck.Format("2006-01-02 15:04:05"))
	}
	if s.LastError != "" {
		tw.writef("Last Error:\t%s\n", s.LastError)
	}
	return tw.finish()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
