// Package compliance aggregates enriched leads into per-rep and
// per-team coverage statistics, attempt-distribution buckets, and a
// prioritized issue list.
package compliance

import (
	"fmt"
	"math"
	"sort"

	"outreach_backend/internal/leads"
	"outreach_backend/internal/roster"
)

// Severity orders issues for reporting.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
)

// Stoplight is the one-glance health of a pipeline run.
type Stoplight string

const (
	StoplightRed    Stoplight = "RED"
	StoplightYellow Stoplight = "YELLOW"
	StoplightGreen  Stoplight = "GREEN"
)

// Issue is one actionable finding.
type Issue struct {
	Severity Severity
	Rep      string // empty for lead-level issues with no owner
	JobID    string // empty for rep-level issues
	Message  string
}

// RepStats is the per-rep status breakdown.
type RepStats struct {
	Rep        string
	Total      int
	Engaged    int
	Worked     int
	Partial    int
	NotWorked  int
	Compliance int // round(100*(engaged+worked)/total)
}

// TeamStats rolls rep stats up to one manager.
type TeamStats struct {
	Manager    string
	Reps       []string
	Total      int
	Engaged    int
	Worked     int
	Compliance int
}

// Buckets is the attempt-count distribution over all leads.
type Buckets struct {
	Zero int // 0 attempts
	Low  int // 1-3
	Mid  int // 4-10
	High int // 10+
}

// Report is the full aggregation output.
type Report struct {
	Reps      []RepStats
	Teams     []TeamStats
	Buckets   Buckets
	Issues    []Issue
	Stoplight Stoplight
}

// Aggregate computes the report for one enriched lead set. The roster
// may be nil when no roster sheet is configured; roster-driven issues
// are skipped in that case.
func Aggregate(enriched []leads.EnrichedLead, r *roster.Roster) Report {
	report := Report{}

	byRep := make(map[string]*RepStats)
	for _, lead := range enriched {
		stats := byRep[lead.Rep]
		if stats == nil {
			stats = &RepStats{Rep: lead.Rep}
			byRep[lead.Rep] = stats
		}
		stats.Total++
		switch lead.RC.WorkStatus {
		case leads.Engaged:
			stats.Engaged++
		case leads.Worked:
			stats.Worked++
		case leads.Partial:
			stats.Partial++
		default:
			stats.NotWorked++
		}

		report.Buckets.Add(lead.RC.TotalAttempts())
		report.Issues = append(report.Issues, leadIssues(lead)...)
	}

	for _, stats := range byRep {
		stats.Compliance = percentage(stats.Engaged+stats.Worked, stats.Total)
		report.Reps = append(report.Reps, *stats)
	}
	sort.Slice(report.Reps, func(i, j int) bool { return report.Reps[i].Rep < report.Reps[j].Rep })

	for _, stats := range report.Reps {
		if stats.Compliance < 50 {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityHigh,
				Rep:      stats.Rep,
				Message:  fmt.Sprintf("compliance %d%% across %d leads", stats.Compliance, stats.Total),
			})
		}
	}

	if r != nil {
		report.Teams, report.Issues = rollUpTeams(report.Reps, r, report.Issues)
	}

	sort.SliceStable(report.Issues, func(i, j int) bool {
		return severityRank(report.Issues[i].Severity) < severityRank(report.Issues[j].Severity)
	})
	report.Stoplight = deriveStoplight(report.Issues)
	return report
}

// leadIssues flags individual leads that demand attention.
func leadIssues(lead leads.EnrichedLead) []Issue {
	var issues []Issue
	notWorked := lead.RC.WorkStatus == leads.NotWorked
	if lead.RC.IsHot && notWorked {
		issues = append(issues, Issue{
			Severity: SeverityCritical,
			Rep:      lead.Rep,
			JobID:    lead.JobID,
			Message:  "hot move date with zero outreach",
		})
	}
	if lead.RC.IsHighValue && notWorked {
		issues = append(issues, Issue{
			Severity: SeverityHigh,
			Rep:      lead.Rep,
			JobID:    lead.JobID,
			Message:  "high-value lead not worked",
		})
	}
	if lead.RC.IsStale {
		issues = append(issues, Issue{
			Severity: SeverityMedium,
			Rep:      lead.Rep,
			JobID:    lead.JobID,
			Message:  "stale lead, no outreach since creation",
		})
	}
	return issues
}

// rollUpTeams groups reps under their manager. Reps with zero or more
// than one manager mapping are left out of team totals and surfaced as
// integrity issues instead.
func rollUpTeams(reps []RepStats, r *roster.Roster, issues []Issue) ([]TeamStats, []Issue) {
	byManager := make(map[string]*TeamStats)

	for _, stats := range reps {
		profile, onRoster := r.Profile(stats.Rep)
		if onRoster && profile.Email == "" {
			issues = append(issues, Issue{
				Severity: SeverityMedium,
				Rep:      stats.Rep,
				Message:  "no email address on the roster",
			})
		}

		managers := r.Managers(stats.Rep)
		switch len(managers) {
		case 0:
			issues = append(issues, Issue{
				Severity: SeverityMedium,
				Rep:      stats.Rep,
				Message:  "no manager assigned",
			})
			continue
		case 1:
		default:
			issues = append(issues, Issue{
				Severity: SeverityMedium,
				Rep:      stats.Rep,
				Message:  fmt.Sprintf("assigned to %d managers", len(managers)),
			})
			continue
		}

		team := byManager[managers[0]]
		if team == nil {
			team = &TeamStats{Manager: managers[0]}
			byManager[managers[0]] = team
		}
		team.Reps = append(team.Reps, stats.Rep)
		team.Total += stats.Total
		team.Engaged += stats.Engaged
		team.Worked += stats.Worked
	}

	teams := make([]TeamStats, 0, len(byManager))
	for _, team := range byManager {
		team.Compliance = percentage(team.Engaged+team.Worked, team.Total)
		teams = append(teams, *team)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Manager < teams[j].Manager })
	return teams, issues
}

// Add buckets one lead's attempt count.
func (b *Buckets) Add(attempts int) {
	switch {
	case attempts == 0:
		b.Zero++
	case attempts <= 3:
		b.Low++
	case attempts <= 10:
		b.Mid++
	default:
		b.High++
	}
}

// deriveStoplight reduces the issue list to one color: RED on any
// critical finding, YELLOW on anything else, GREEN when clean.
func deriveStoplight(issues []Issue) Stoplight {
	hasOther := false
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			return StoplightRed
		}
		hasOther = true
	}
	if hasOther {
		return StoplightYellow
	}
	return StoplightGreen
}

func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	default:
		return 2
	}
}
