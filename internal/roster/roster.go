// Package roster loads rep profiles and the rep-to-manager mapping from
// the roster sheet. The roster is consumed read-only.
package roster

import (
	"context"
	"strings"

	"outreach_backend/internal/trackers"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/sheets"
)

// Profile is one rep's roster row.
type Profile struct {
	Username     string // normalized
	Email        string
	DisplayName  string
	Team         string
	Manager      string
	ManagerEmail string
	Active       bool
}

// Roster indexes profiles by normalized username. A username can appear
// on multiple rows (shift schedules are kept per row), so the manager
// mapping is tracked as a list to let the compliance aggregator surface
// duplicate assignments.
type Roster struct {
	profiles map[string]Profile
	managers map[string][]string
}

// roster sheet column candidates, resolved the same exact-then-substring
// way the trackers resolve theirs.
var (
	usernameHeaders = []string{"USERNAME", "REP", "LOGIN"}
	emailHeaders    = []string{"EMAIL", "EMAILADDRESS"}
	nameHeaders     = []string{"DISPLAYNAME", "FULLNAME", "NAME"}
	teamHeaders     = []string{"TEAM", "OFFICE", "BRANCH"}
	managerHeaders  = []string{"MANAGER", "TEAMLEAD", "SUPERVISOR"}
	mgrMailHeaders  = []string{"MANAGEREMAIL", "LEADEMAIL"}
	activeHeaders   = []string{"ACTIVE", "SCHEDULED", "ONSHIFT"}
)

func findColumn(headers []string, candidates []string) int {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = trackers.NormalizeHeader(h)
	}
	for _, candidate := range candidates {
		for i, h := range normalized {
			if h == candidate {
				return i
			}
		}
	}
	for _, candidate := range candidates {
		for i, h := range normalized {
			if h != "" && strings.Contains(h, candidate) {
				return i
			}
		}
	}
	return -1
}

// Load reads the roster sheet. Row 1 is the header row; data follows.
func Load(ctx context.Context, store sheets.ValueStore, spreadsheetID, sheet string) (*Roster, error) {
	rows, err := store.Read(ctx, spreadsheetID, sheet+"!A1:Z")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "read roster", err).WithOp("roster.Load")
	}
	if len(rows) < 1 {
		return nil, apperr.Config("roster sheet is empty").WithOp("roster.Load")
	}

	headers := rows[0]
	userCol := findColumn(headers, usernameHeaders)
	if userCol < 0 {
		return nil, apperr.Config("roster sheet has no username column").WithOp("roster.Load")
	}
	emailCol := findColumn(headers, emailHeaders)
	nameCol := findColumn(headers, nameHeaders)
	teamCol := findColumn(headers, teamHeaders)
	managerCol := findColumn(headers, managerHeaders)
	mgrMailCol := findColumn(headers, mgrMailHeaders)
	activeCol := findColumn(headers, activeHeaders)

	r := &Roster{
		profiles: make(map[string]Profile),
		managers: make(map[string][]string),
	}

	for _, row := range rows[1:] {
		username := trackers.NormalizeUsername(cell(row, userCol))
		if username == "" {
			continue
		}

		profile := Profile{
			Username:     username,
			Email:        strings.TrimSpace(cell(row, emailCol)),
			DisplayName:  strings.TrimSpace(cell(row, nameCol)),
			Team:         strings.TrimSpace(cell(row, teamCol)),
			Manager:      strings.TrimSpace(cell(row, managerCol)),
			ManagerEmail: strings.TrimSpace(cell(row, mgrMailCol)),
			Active:       activeCol < 0 || isActive(cell(row, activeCol)),
		}

		// First row wins for profile details; every row contributes to
		// the manager mapping so duplicates stay visible.
		if _, seen := r.profiles[username]; !seen {
			r.profiles[username] = profile
		}
		if profile.Manager != "" && !contains(r.managers[username], profile.Manager) {
			r.managers[username] = append(r.managers[username], profile.Manager)
		}
	}
	return r, nil
}

// Profile returns the roster row for a normalized username.
func (r *Roster) Profile(username string) (Profile, bool) {
	profile, ok := r.profiles[username]
	return profile, ok
}

// Managers returns every distinct manager mapped to a rep. Zero entries
// means unassigned; more than one is a duplicate assignment.
func (r *Roster) Managers(username string) []string {
	return r.managers[username]
}

// AllowList is the set of active usernames used by the lead loader.
func (r *Roster) AllowList() map[string]bool {
	allowed := make(map[string]bool, len(r.profiles))
	for username, profile := range r.profiles {
		if profile.Active {
			allowed[username] = true
		}
	}
	return allowed
}

func isActive(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "y", "x", "1", "active", "scheduled":
		return true
	default:
		return false
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
