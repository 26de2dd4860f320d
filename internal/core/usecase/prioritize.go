package usecase

import (
	"fmt"
	"sort"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

const workQueueLimit = 30

// BuildWorkQueue merges workflow and risk output into an ordered queue:
// one phase-appropriate task per client plus one entry per pending item,
// sorted by priority descending, top 30.
func BuildWorkQueue(statuses []domain.ClientWorkflowStatus) []domain.WorkQueueItem {
	var items []domain.WorkQueueItem

	for _, status := range statuses {
		switch status.Phase {
		case domain.PhaseNotStarted:
			priority := 50
			if status.Risk.Level == domain.RiskHigh || status.Risk.Level == domain.RiskCritical {
				priority = 90
			}
			items = append(items, domain.WorkQueueItem{
				Client:   status.ClientName,
				Task:     "Start data collection",
				Priority: priority,
				Phase:    status.Phase,
				Reason:   "Month-end work not started",
			})
		case domain.PhaseDataCollection:
			items = append(items, domain.WorkQueueItem{
				Client:   status.ClientName,
				Task:     "Complete invoice collection and entry",
				Priority: 70 + (100-status.Progress)/5,
				Phase:    status.Phase,
				Reason:   fmt.Sprintf("Data collection %d%% complete", status.Progress),
			})
		case domain.PhaseReconciliation:
			items = append(items, domain.WorkQueueItem{
				Client:   status.ClientName,
				Task:     "Complete reconciliation",
				Priority: 80 + (100-status.Progress)/4,
				Phase:    status.Phase,
				Reason:   fmt.Sprintf("Reconciliation %d%% complete", status.Progress),
			})
		case domain.PhaseReview:
			items = append(items, domain.WorkQueueItem{
				Client:   status.ClientName,
				Task:     "Review and approve for filing",
				Priority: 85,
				Phase:    status.Phase,
				Reason:   "Ready for review",
			})
		}

		for _, pending := range status.PendingItems {
			items = append(items, domain.WorkQueueItem{
				Client:   status.ClientName,
				Task:     pending,
				Priority: 60,
				Phase:    status.Phase,
				Reason:   "Pending item",
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority > items[j].Priority
	})
	if len(items) > workQueueLimit {
		items = items[:workQueueLimit]
	}
	return items
}

// DetectBottlenecks runs the independent firm-level congestion checks.
// They are not mutually exclusive; every matching check emits a finding.
func DetectBottlenecks(statuses []domain.ClientWorkflowStatus, now time.Time) []domain.Bottleneck {
	total := len(statuses)
	if total == 0 {
		return nil
	}

	var bottlenecks []domain.Bottleneck

	// Phase congestion: too many clients stuck at the same non-terminal
	// phase.
	phaseCounts := make(map[domain.Phase]int)
	for _, status := range statuses {
		phaseCounts[status.Phase]++
	}
	for phase, count := range phaseCounts {
		if phase == domain.PhaseComplete || phase == domain.PhaseFilingReady {
			continue
		}
		if float64(count) > float64(total)*0.4 {
			severity := "medium"
			if float64(count) > float64(total)*0.6 {
				severity = "high"
			}
			bottlenecks = append(bottlenecks, domain.Bottleneck{
				Type:       "phase_congestion",
				Phase:      phase,
				Severity:   severity,
				Message:    fmt.Sprintf("%d clients (%d%%) stuck at %s phase", count, count*100/total, phase),
				Suggestion: fmt.Sprintf("Focus team resources on moving clients through %s", phase),
			})
		}
	}

	highRisk := 0
	for _, status := range statuses {
		if status.Risk.Level == domain.RiskHigh || status.Risk.Level == domain.RiskCritical {
			highRisk++
		}
	}
	if float64(highRisk) > float64(total)*0.3 {
		bottlenecks = append(bottlenecks, domain.Bottleneck{
			Type:       "risk_accumulation",
			Severity:   "critical",
			Message:    fmt.Sprintf("%d clients at high/critical risk - firm-wide compliance in jeopardy", highRisk),
			Suggestion: "Immediate escalation to partner level; consider additional resources",
		})
	}

	slowReported := 0
	for _, status := range statuses {
		if status.Progress < 30 && status.Phase != domain.PhaseNotStarted {
			bottlenecks = append(bottlenecks, domain.Bottleneck{
				Type:       "slow_progress",
				Client:     status.ClientName,
				Severity:   "medium",
				Message:    fmt.Sprintf("%s only %d%% through %s", status.ClientName, status.Progress, status.Phase),
				Suggestion: fmt.Sprintf("Check for blockers with %s", status.ClientName),
			})
			slowReported++
			if slowReported == 5 {
				break
			}
		}
	}

	if now.Day() > 20 {
		incomplete := 0
		for _, status := range statuses {
			if status.Phase != domain.PhaseComplete && status.Phase != domain.PhaseFilingReady {
				incomplete++
			}
		}
		if incomplete > 0 {
			severity := "high"
			if now.Day() > 25 {
				severity = "critical"
			}
			bottlenecks = append(bottlenecks, domain.Bottleneck{
				Type:       "deadline_pressure",
				Severity:   severity,
				Message:    fmt.Sprintf("%d clients not filing-ready with month-end approaching", incomplete),
				Suggestion: "Prioritize filing-critical tasks; consider deadline extensions if available",
			})
		}
	}

	return bottlenecks
}
