package commands

import (
	"github.com/pweiskircher/buganize/internal/contracts"
	"github.com/pweiskircher/buganize/internal/export"
	"github.com/pweiskircher/buganize/internal/output"
	"github.com/pweiskircher/buganize/internal/tracker"
)

// RunTrackers lists the known trackers. It needs no network access.
func RunTrackers(registry tracker.Registry) output.Report {
	known := registry.All()

	rows := make([]export.Row, 0, len(known))
	for _, entry := range known {
		rows = append(rows, export.Row{
			{Column: "ID", Value: entry.ID},
			{Column: "Name", Value: entry.Name},
			{Column: "URL", Value: entry.URL},
		})
	}

	return output.Report{
		CommandName: string(contracts.CommandTrackers),
		Counts:      contracts.AggregateCounts{Returned: len(known)},
		Data:        known,
		View:        output.TrackerTable{Trackers: known},
		Rows:        rows,
	}
}
