package activity

import "strings"

// Column candidates per logical field. The log sheets come from the
// telephony provider export and their header spellings drift between
// accounts, so each field carries an ordered candidate list: an exact
// case-insensitive match is preferred, then a substring match, in
// candidate order. This two-pass contract is deliberate; downstream
// sheets are not controlled by this system.
var (
	timestampCandidates = []string{"START TIME", "DATE/TIME", "TIMESTAMP", "TIME", "DATE"}
	directionCandidates = []string{"DIRECTION", "CALL DIRECTION", "TYPE"}
	fromCandidates      = []string{"FROM NUMBER", "FROM PHONE", "FROM", "CALLER"}
	toCandidates        = []string{"TO NUMBER", "TO PHONE", "TO", "RECIPIENT"}
	durationCandidates  = []string{"DURATION", "CALL LENGTH", "TALK TIME", "LENGTH"}
	resultCandidates    = []string{"ACTION RESULT", "RESULT", "STATUS"}
	actionCandidates    = []string{"ACTION", "CALL TYPE"}
	reasonCandidates    = []string{"REASON", "ERROR", "DELIVERY ERROR"}
	smsStatusCandidates = []string{"MESSAGE STATUS", "DELIVERY STATUS", "STATUS", "RESULT"}
)

func normalizeHeader(h string) string {
	return strings.ToUpper(strings.TrimSpace(h))
}

// resolveColumn finds the index of the first header matching the
// candidate list: exact pass first, then substring pass. Returns -1 when
// nothing matches.
func resolveColumn(headers []string, candidates []string) int {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
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

// columns holds the resolved per-sheet column positions. -1 means the
// sheet has no such column.
type columns struct {
	timestamp int
	direction int
	from      int
	to        int
	duration  int
	result    int
	action    int
	reason    int
}

func resolveColumns(medium Medium, headers []string) columns {
	cols := columns{
		timestamp: resolveColumn(headers, timestampCandidates),
		direction: resolveColumn(headers, directionCandidates),
		from:      resolveColumn(headers, fromCandidates),
		to:        resolveColumn(headers, toCandidates),
	}
	if medium == MediumCall {
		cols.duration = resolveColumn(headers, durationCandidates)
		cols.result = resolveColumn(headers, resultCandidates)
		cols.action = resolveColumn(headers, actionCandidates)
		cols.reason = resolveColumn(headers, reasonCandidates)
	} else {
		cols.duration = -1
		cols.result = resolveColumn(headers, smsStatusCandidates)
		cols.action = -1
		cols.reason = resolveColumn(headers, reasonCandidates)
	}
	return cols
}
