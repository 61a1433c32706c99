package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/wagiedev/procbridge-go"
)

func renderHealth(h procbridge.Health) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})

	lastRestart := "-"
	if !h.Worker.LastRestart.IsZero() {
		lastRestart = h.Worker.LastRestart.Format(time.RFC3339)
	}
	pid := "-"
	if h.Worker.PID > 0 {
		pid = strconv.Itoa(h.Worker.PID)
	}

	tw.AppendRows([]table.Row{
		{"Pending requests", h.Channel.PendingRequests},
		{"Max pending", h.Channel.MaxPending},
		{"Healthy", yesNo(h.Channel.IsHealthy)},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Worker running", yesNo(h.Worker.Running)},
		{"Worker PID", pid},
		{"Run ID", valueOrDash(h.Worker.RunID)},
		{"Restarts", h.Worker.Restarts},
		{"Last (re)start", lastRestart},
		{"Restarts exhausted", yesNo(h.Worker.Exhausted)},
		{"Last exit", valueOrDash(h.Worker.LastExit)},
	})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
