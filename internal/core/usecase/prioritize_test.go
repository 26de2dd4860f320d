package usecase

import (
	"fmt"
	"testing"
	"time"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

func statusAt(client string, phase domain.Phase, progress int, level domain.RiskLevel) domain.ClientWorkflowStatus {
	return domain.ClientWorkflowStatus{
		ClientID:   clientID(client),
		ClientName: client,
		Phase:      phase,
		Progress:   progress,
		Risk:       domain.ComplianceRisk{Level: level},
	}
}

func TestBuildWorkQueuePriorities(t *testing.T) {
	statuses := []domain.ClientWorkflowStatus{
		statusAt("NotStarted Low", domain.PhaseNotStarted, 0, domain.RiskLow),
		statusAt("NotStarted Hot", domain.PhaseNotStarted, 0, domain.RiskCritical),
		statusAt("Collecting", domain.PhaseDataCollection, 10, domain.RiskLow),
		statusAt("Reconciling", domain.PhaseReconciliation, 60, domain.RiskLow),
		statusAt("Reviewing", domain.PhaseReview, 90, domain.RiskLow),
		statusAt("Ready", domain.PhaseFilingReady, 100, domain.RiskLow),
	}

	queue := BuildWorkQueue(statuses)

	byClient := map[string]domain.WorkQueueItem{}
	for _, item := range queue {
		byClient[item.Client] = item
	}

	if got := byClient["NotStarted Low"].Priority; got != 50 {
		t.Fatalf("not-started low risk: %d", got)
	}
	if got := byClient["NotStarted Hot"].Priority; got != 90 {
		t.Fatalf("not-started high risk: %d", got)
	}
	if got := byClient["Collecting"].Priority; got != 70+(100-10)/5 {
		t.Fatalf("data collection: %d", got)
	}
	if got := byClient["Reconciling"].Priority; got != 80+(100-60)/4 {
		t.Fatalf("reconciliation: %d", got)
	}
	if got := byClient["Reviewing"].Priority; got != 85 {
		t.Fatalf("review: %d", got)
	}
	// Filing-ready clients have no phase task.
	if _, ok := byClient["Ready"]; ok {
		t.Fatal("filing-ready client should not appear in the queue")
	}

	for i := 1; i < len(queue); i++ {
		if queue[i].Priority > queue[i-1].Priority {
			t.Fatalf("queue not sorted at %d", i)
		}
	}
}

func TestBuildWorkQueuePendingItems(t *testing.T) {
	status := statusAt("Client", domain.PhaseReview, 90, domain.RiskLow)
	status.PendingItems = []string{"Get GSTIN for INV-1", "Review invoice INV-2"}

	queue := BuildWorkQueue([]domain.ClientWorkflowStatus{status})
	if len(queue) != 3 {
		t.Fatalf("expected phase task plus 2 pending items, got %d", len(queue))
	}
	// Phase task at 85 leads, pending items follow at 60.
	if queue[0].Priority != 85 || queue[1].Priority != 60 || queue[2].Priority != 60 {
		t.Fatalf("priorities: %d %d %d", queue[0].Priority, queue[1].Priority, queue[2].Priority)
	}
	if queue[1].Task != "Get GSTIN for INV-1" || queue[2].Task != "Review invoice INV-2" {
		t.Fatalf("pending order not preserved: %s / %s", queue[1].Task, queue[2].Task)
	}
}

func TestBuildWorkQueueCappedAtThirty(t *testing.T) {
	var statuses []domain.ClientWorkflowStatus
	for i := 0; i < 40; i++ {
		statuses = append(statuses, statusAt(fmt.Sprintf("C%d", i), domain.PhaseReview, 90, domain.RiskLow))
	}

	if queue := BuildWorkQueue(statuses); len(queue) != workQueueLimit {
		t.Fatalf("expected cap at %d, got %d", workQueueLimit, len(queue))
	}
}

func TestDetectBottlenecksPhaseCongestion(t *testing.T) {
	midMonth := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	var statuses []domain.ClientWorkflowStatus
	for i := 0; i < 7; i++ {
		statuses = append(statuses, statusAt(fmt.Sprintf("C%d", i), domain.PhaseReconciliation, 60, domain.RiskLow))
	}
	for i := 0; i < 3; i++ {
		statuses = append(statuses, statusAt(fmt.Sprintf("R%d", i), domain.PhaseFilingReady, 100, domain.RiskLow))
	}

	bottlenecks := DetectBottlenecks(statuses, midMonth)
	if len(bottlenecks) != 1 {
		t.Fatalf("expected one finding, got %+v", bottlenecks)
	}
	got := bottlenecks[0]
	if got.Type != "phase_congestion" || got.Phase != domain.PhaseReconciliation {
		t.Fatalf("finding: %+v", got)
	}
	// 70% stuck crosses the 60% line.
	if got.Severity != "high" {
		t.Fatalf("severity: %s", got.Severity)
	}
}

func TestDetectBottlenecksRiskAccumulation(t *testing.T) {
	midMonth := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	statuses := []domain.ClientWorkflowStatus{
		statusAt("A", domain.PhaseFilingReady, 100, domain.RiskCritical),
		statusAt("B", domain.PhaseFilingReady, 100, domain.RiskHigh),
		statusAt("C", domain.PhaseFilingReady, 100, domain.RiskLow),
		statusAt("D", domain.PhaseFilingReady, 100, domain.RiskLow),
		statusAt("E", domain.PhaseFilingReady, 100, domain.RiskLow),
	}

	bottlenecks := DetectBottlenecks(statuses, midMonth)
	if len(bottlenecks) != 1 {
		t.Fatalf("expected one finding, got %+v", bottlenecks)
	}
	if bottlenecks[0].Type != "risk_accumulation" || bottlenecks[0].Severity != "critical" {
		t.Fatalf("finding: %+v", bottlenecks[0])
	}
}

func TestDetectBottlenecksSlowProgressCapped(t *testing.T) {
	midMonth := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	var statuses []domain.ClientWorkflowStatus
	for i := 0; i < 8; i++ {
		statuses = append(statuses, statusAt(fmt.Sprintf("C%d", i), domain.PhaseDataCollection, 10, domain.RiskLow))
	}
	// All slow clients share one phase, so congestion also fires.
	bottlenecks := DetectBottlenecks(statuses, midMonth)

	slow := 0
	for _, b := range bottlenecks {
		if b.Type == "slow_progress" {
			slow++
		}
	}
	if slow != 5 {
		t.Fatalf("expected slow-progress findings capped at 5, got %d", slow)
	}
}

func TestDetectBottlenecksDeadlinePressure(t *testing.T) {
	statuses := []domain.ClientWorkflowStatus{
		statusAt("A", domain.PhaseReview, 90, domain.RiskLow),
		statusAt("B", domain.PhaseFilingReady, 100, domain.RiskLow),
	}

	late := time.Date(2024, 12, 22, 0, 0, 0, 0, time.UTC)
	found := findBottleneck(DetectBottlenecks(statuses, late), "deadline_pressure")
	if found == nil || found.Severity != "high" {
		t.Fatalf("day 22: %+v", found)
	}

	veryLate := time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC)
	found = findBottleneck(DetectBottlenecks(statuses, veryLate), "deadline_pressure")
	if found == nil || found.Severity != "critical" {
		t.Fatalf("day 28: %+v", found)
	}

	midMonth := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	if found = findBottleneck(DetectBottlenecks(statuses, midMonth), "deadline_pressure"); found != nil {
		t.Fatalf("mid-month should not report deadline pressure: %+v", found)
	}
}

func TestDetectBottlenecksEmpty(t *testing.T) {
	if got := DetectBottlenecks(nil, time.Now()); got != nil {
		t.Fatalf("expected nil for empty statuses, got %+v", got)
	}
}

func findBottleneck(bottlenecks []domain.Bottleneck, typ string) *domain.Bottleneck {
	for i := range bottlenecks {
		if bottlenecks[i].Type == typ {
			return &bottlenecks[i]
		}
	}
	return nil
}
