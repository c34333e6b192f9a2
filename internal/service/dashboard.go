package service

import (
	"github.com/rujoshi/zonetrack/internal/domain"
)

// Summarize derives per-zone dashboard summaries for one tab. It is a pure
// read-side projection over the zones it is given and never writes back.
//
// Tab selection: unsolved covers inprogress records plus records with a
// missing status (pre-migration data); complete and rejected match exactly.
// The zone status reflects the filtered records: any in-progress record makes
// the zone inprogress; otherwise a non-empty complete/rejected tab mirrors
// the tab; an empty selection leaves the zone pending.
func Summarize(zones []*domain.Zone, tab domain.DashboardTab) []domain.ZoneSummary {
	summaries := make([]domain.ZoneSummary, 0, len(zones))
	for _, zone := range zones {
		filtered := filterRecords(zone.WorkRecords, tab)

		status := domain.StatusPending
		if len(filtered) > 0 {
			hasInProgress := false
			hasMatch := false
			for _, rec := range filtered {
				switch rec.Status.OrDefault() {
				case domain.StatusInProgress:
					hasInProgress = true
				case domain.WorkStatus(tab):
					hasMatch = true
				}
			}
			switch {
			case hasInProgress:
				status = domain.StatusInProgress
			case tab == domain.TabComplete && hasMatch:
				status = domain.StatusComplete
			case tab == domain.TabRejected && hasMatch:
				status = domain.StatusRejected
			}
		}

		lastUpdated := "N/A"
		if !zone.UpdatedAt.IsZero() {
			lastUpdated = zone.UpdatedAt.Format("2006-01-02")
		}

		summaries = append(summaries, domain.ZoneSummary{
			ID:          zone.ID,
			Status:      status,
			WorkCount:   len(filtered),
			WorkRecords: filtered,
			LastUpdated: lastUpdated,
		})
	}
	return summaries
}

func filterRecords(records []domain.WorkRecord, tab domain.DashboardTab) []domain.WorkRecord {
	filtered := []domain.WorkRecord{}
	for _, rec := range records {
		switch tab {
		case domain.TabComplete:
			if rec.Status == domain.StatusComplete {
				filtered = append(filtered, rec)
			}
		case domain.TabRejected:
			if rec.Status == domain.StatusRejected {
				filtered = append(filtered, rec)
			}
		default:
			if s := rec.Status.OrDefault(); s == domain.StatusInProgress || s == domain.StatusPending {
				filtered = append(filtered, rec)
			}
		}
	}
	return filtered
}
