// Package alerts delivers plain-text run reports to reps and managers
// after a pipeline run. Delivery failures are captured per recipient
// and never abort the loop; pacing between sends keeps the mail
// provider's quota happy.
package alerts

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"outreach_backend/internal/compliance"
	"outreach_backend/internal/roster"
	"outreach_backend/platform/kv"
	"outreach_backend/platform/logger"
)

// Sender delivers one message. The SMTP implementation lives in
// smtp.go; tests substitute their own.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendFailure records one recipient that could not be reached.
type SendFailure struct {
	Recipient string
	Reason    string
}

// Notifier fans a compliance report out to its audience.
type Notifier struct {
	sender          Sender
	flags           kv.Store
	log             *logger.Logger
	managerAddress  string
	overrideAddress string
	limiter         *rate.Limiter
}

// New builds a notifier. managerAddress receives the team rollup;
// overrideAddress replaces every recipient while the test-mode flag is
// set.
func New(sender Sender, flags kv.Store, log *logger.Logger, managerAddress, overrideAddress string) *Notifier {
	return &Notifier{
		sender:          sender,
		flags:           flags,
		log:             log,
		managerAddress:  managerAddress,
		overrideAddress: overrideAddress,
		limiter:         rate.NewLimiter(rate.Every(rateInterval), 1),
	}
}

// SendRunReports mails each rep their own summary and the manager the
// team rollup. One recipient failing is recorded and skipped; the
// returned failures list is the complete record of what did not go out.
func (n *Notifier) SendRunReports(ctx context.Context, report compliance.Report, r *roster.Roster) ([]SendFailure, error) {
	testMode, err := n.testMode(ctx)
	if err != nil {
		return nil, err
	}

	var failures []SendFailure
	for _, stats := range report.Reps {
		if err := ctx.Err(); err != nil {
			return failures, err
		}

		address := n.repAddress(stats.Rep, r, testMode)
		if address == "" {
			// Already surfaced as a roster issue by the aggregator.
			continue
		}

		body := repReport(stats, report.Issues)
		if err := n.deliver(ctx, address, fmt.Sprintf("Outreach report for %s", stats.Rep), body); err != nil {
			n.log.Error("rep report delivery failed", "rep", stats.Rep, "error", err)
			failures = append(failures, SendFailure{Recipient: address, Reason: err.Error()})
		}
	}

	if n.managerAddress != "" {
		address := n.managerAddress
		if testMode && n.overrideAddress != "" {
			address = n.overrideAddress
		}
		body := teamReport(report)
		if err := n.deliver(ctx, address, "Outreach team report", body); err != nil {
			n.log.Error("team report delivery failed", "error", err)
			failures = append(failures, SendFailure{Recipient: address, Reason: err.Error()})
		}
	}

	return failures, nil
}

func (n *Notifier) deliver(ctx context.Context, to, subject, body string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	return n.sender.Send(ctx, to, subject, body)
}

func (n *Notifier) repAddress(rep string, r *roster.Roster, testMode bool) string {
	if testMode && n.overrideAddress != "" {
		return n.overrideAddress
	}
	if r == nil {
		return ""
	}
	profile, ok := r.Profile(rep)
	if !ok {
		return ""
	}
	return profile.Email
}

func (n *Notifier) testMode(ctx context.Context) (bool, error) {
	value, ok, err := n.flags.Get(ctx, kv.KeyTestMode)
	if err != nil {
		return false, err
	}
	return ok && (value == "true" || value == "1"), nil
}

// repReport renders one rep's section of the run as plain text.
func repReport(stats compliance.RepStats, issues []compliance.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Leads: %d\n", stats.Total)
	fmt.Fprintf(&b, "Engaged: %d  Worked: %d  Partial: %d  Not worked: %d\n",
		stats.Engaged, stats.Worked, stats.Partial, stats.NotWorked)
	fmt.Fprintf(&b, "Compliance: %d%%\n", stats.Compliance)

	var own []compliance.Issue
	for _, issue := range issues {
		if issue.Rep == stats.Rep {
			own = append(own, issue)
		}
	}
	if len(own) > 0 {
		b.WriteString("\nNeeds attention:\n")
		for _, issue := range own {
			if issue.JobID != "" {
				fmt.Fprintf(&b, "  [%s] %s: %s\n", issue.Severity, issue.JobID, issue.Message)
			} else {
				fmt.Fprintf(&b, "  [%s] %s\n", issue.Severity, issue.Message)
			}
		}
	}
	return b.String()
}

// teamReport renders the manager rollup as plain text.
func teamReport(report compliance.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run status: %s\n\n", report.Stoplight)

	for _, team := range report.Teams {
		fmt.Fprintf(&b, "Team %s: %d leads, compliance %d%% (%s)\n",
			team.Manager, team.Total, team.Compliance, strings.Join(team.Reps, ", "))
	}
	fmt.Fprintf(&b, "\nAttempt distribution: 0:%d  1-3:%d  4-10:%d  10+:%d\n",
		report.Buckets.Zero, report.Buckets.Low, report.Buckets.Mid, report.Buckets.High)

	if len(report.Issues) > 0 {
		fmt.Fprintf(&b, "\nIssues (%d):\n", len(report.Issues))
		for _, issue := range report.Issues {
			line := "  [" + string(issue.Severity) + "]"
			if issue.Rep != "" {
				line += " " + issue.Rep
			}
			if issue.JobID != "" {
				line += " " + issue.JobID
			}
			b.WriteString(line + ": " + issue.Message + "\n")
		}
	}
	return b.String()
}
