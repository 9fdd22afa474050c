// Package trackers reads leads out of the heterogeneous tracker sheets
// and writes filtered, enriched views back to them.
package trackers

import "strings"

// Field is a logical lead column. Tracker sheets spell their headers
// many different ways; the alias table below maps every accepted
// spelling onto one Field (many-to-one).
type Field int

const (
	FieldUnknown Field = iota
	FieldJobID
	FieldRep
	FieldPhonePrimary
	FieldPhoneSecondary
	FieldPriority
	FieldMoveDate
	FieldEstimate
	FieldSource
	FieldAddress
	FieldCity
	FieldCreated
	FieldExcluded
	FieldCallCount
	FieldSMSCount
	FieldWorkStatus
	FieldLastActivity
)

// headerAliases is ordered: earlier entries win the substring pass.
// Keys are normalized spellings (uppercased, non-alphanumerics removed),
// so "JOB #", "JOB#", and "JOB_NO" all land on FieldJobID.
var headerAliases = []struct {
	alias string
	field Field
}{
	{"JOBID", FieldJobID},
	{"JOBNUMBER", FieldJobID},
	{"JOBNO", FieldJobID},
	{"JOB", FieldJobID},
	{"SALESREP", FieldRep},
	{"ASSIGNEDTO", FieldRep},
	{"USERNAME", FieldRep},
	{"OWNER", FieldRep},
	{"REP", FieldRep},
	{"PRIMARYPHONE", FieldPhonePrimary},
	{"PHONENUMBER", FieldPhonePrimary},
	{"PHONE1", FieldPhonePrimary},
	{"PHONE", FieldPhonePrimary},
	{"SECONDARYPHONE", FieldPhoneSecondary},
	{"ALTPHONE", FieldPhoneSecondary},
	{"PHONE2", FieldPhoneSecondary},
	{"CELL", FieldPhoneSecondary},
	{"PRIORITY", FieldPriority},
	{"TIER", FieldPriority},
	{"PRI", FieldPriority},
	{"MOVEDATE", FieldMoveDate},
	{"MOVINGDATE", FieldMoveDate},
	{"DATEOFMOVE", FieldMoveDate},
	{"ESTIMATEDTOTAL", FieldEstimate},
	{"ESTTOTAL", FieldEstimate},
	{"ESTIMATE", FieldEstimate},
	{"QUOTETOTAL", FieldEstimate},
	{"LEADSOURCE", FieldSource},
	{"SOURCE", FieldSource},
	{"ORIGINADDRESS", FieldAddress},
	{"ADDRESS", FieldAddress},
	{"STREET", FieldAddress},
	{"ORIGINCITY", FieldCity},
	{"CITY", FieldCity},
	{"DATECREATED", FieldCreated},
	{"CREATEDON", FieldCreated},
	{"LEADDATE", FieldCreated},
	{"CREATED", FieldCreated},
	{"EXCLUDED", FieldExcluded},
	{"EXCLUDE", FieldExcluded},
	{"DNC", FieldExcluded},
	{"SKIP", FieldExcluded},
	{"CALLSTODAY", FieldCallCount},
	{"CALLCOUNT", FieldCallCount},
	{"CALLS", FieldCallCount},
	{"TEXTSTODAY", FieldSMSCount},
	{"SMSCOUNT", FieldSMSCount},
	{"TEXTS", FieldSMSCount},
	{"SMS", FieldSMSCount},
	{"WORKSTATUS", FieldWorkStatus},
	{"OUTREACHSTATUS", FieldWorkStatus},
	{"STATUS", FieldWorkStatus},
	{"LASTACTIVITY", FieldLastActivity},
	{"LASTTOUCH", FieldLastActivity},
}

// NormalizeHeader uppercases a header and drops everything that is not
// a letter or digit.
func NormalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(header) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FieldFor maps one header spelling to its Field: exact alias match
// first, then substring, in alias order.
func FieldFor(header string) Field {
	normalized := NormalizeHeader(header)
	if normalized == "" {
		return FieldUnknown
	}

	for _, entry := range headerAliases {
		if normalized == entry.alias {
			return entry.field
		}
	}
	for _, entry := range headerAliases {
		if strings.Contains(normalized, entry.alias) {
			return entry.field
		}
	}
	return FieldUnknown
}

// ResolveHeaders maps each Field to the first header column that
// resolves to it. Later columns with the same field are ignored.
func ResolveHeaders(headers []string) map[Field]int {
	resolved := make(map[Field]int)
	for i, header := range headers {
		field := FieldFor(header)
		if field == FieldUnknown {
			continue
		}
		if _, taken := resolved[field]; !taken {
			resolved[field] = i
		}
	}
	return resolved
}
