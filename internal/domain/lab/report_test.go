package lab

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func makeLine(status string) *OrderedTest {
	return &OrderedTest{ID: uuid.New(), Status: status}
}

func completedResult(lineID uuid.UUID, name, value string, abnormal bool, flag string) *LabResult {
	return &LabResult{
		ID:            uuid.New(),
		OrderedTestID: lineID,
		TestName:      name,
		Value:         &value,
		Flag:          flag,
		IsAbnormal:    abnormal,
		Status:        ResultCompleted,
	}
}

func TestBuildReportFullyCancelledOrderHasNoReport(t *testing.T) {
	order := &LabOrder{ID: uuid.New()}
	lines := []*OrderedTest{makeLine(TestCancelled), makeLine(TestCancelled)}
	if rp := buildReport(order, lines, nil); rp != nil {
		t.Errorf("expected nil report, got %+v", rp)
	}
}

func TestBuildReportPreliminaryWhileLinesOutstanding(t *testing.T) {
	order := &LabOrder{ID: uuid.New()}
	done := makeLine(TestCompleted)
	pending := makeLine(TestCollected)
	results := []*LabResult{completedResult(done.ID, "Glucose Fasting", "95", false, FlagNormal)}

	rp := buildReport(order, []*OrderedTest{done, pending}, results)
	if rp == nil {
		t.Fatal("expected report")
	}
	if rp.Status != ReportPreliminary {
		t.Errorf("status = %s, want %s", rp.Status, ReportPreliminary)
	}
	if rp.TotalTests != 2 || rp.CompletedTests != 1 {
		t.Errorf("counts = %d/%d, want 2/1", rp.TotalTests, rp.CompletedTests)
	}
}

func TestBuildReportFinalWhenAllLinesResolved(t *testing.T) {
	order := &LabOrder{ID: uuid.New()}
	a := makeLine(TestCompleted)
	b := makeLine(TestCancelled)
	results := []*LabResult{
		completedResult(a.ID, "White Blood Cells", "15.5", true, FlagHigh),
		{ID: uuid.New(), OrderedTestID: b.ID, TestName: "Glucose Fasting", Status: ResultCancelled},
	}

	rp := buildReport(order, []*OrderedTest{a, b}, results)
	if rp == nil {
		t.Fatal("expected report")
	}
	if rp.Status != ReportFinal {
		t.Errorf("status = %s, want %s", rp.Status, ReportFinal)
	}
	if rp.AbnormalCount != 1 {
		t.Errorf("abnormal count = %d, want 1", rp.AbnormalCount)
	}
}

func TestBuildReportSummaryLayout(t *testing.T) {
	order := &LabOrder{ID: uuid.New()}
	a := makeLine(TestCompleted)
	b := makeLine(TestCompleted)
	unit := "x10^9/L"
	high := completedResult(a.ID, "White Blood Cells", "15.5", true, FlagHigh)
	high.Unit = &unit
	normal := completedResult(b.ID, "Glucose Fasting", "95", false, FlagNormal)

	rp := buildReport(order, []*OrderedTest{a, b}, []*LabResult{high, normal})
	if rp == nil {
		t.Fatal("expected report")
	}

	summary := rp.ClinicalSummary
	abnormalIdx := strings.Index(summary, "Abnormal Results:")
	normalIdx := strings.Index(summary, "Normal Results:")
	if abnormalIdx < 0 || normalIdx < 0 || abnormalIdx > normalIdx {
		t.Fatalf("sections out of order: %q", summary)
	}
	if !strings.Contains(summary, "  White Blood Cells: 15.5 x10^9/L (High)") {
		t.Errorf("missing abnormal line: %q", summary)
	}
	if !strings.Contains(summary, "  Glucose Fasting: 95 (Normal)") {
		t.Errorf("missing normal line: %q", summary)
	}
	if !strings.Contains(summary, "consult the ordering doctor") {
		t.Errorf("missing advisory: %q", summary)
	}
}

func TestBuildReportAllNormalAdvisory(t *testing.T) {
	order := &LabOrder{ID: uuid.New()}
	a := makeLine(TestCompleted)
	rp := buildReport(order, []*OrderedTest{a},
		[]*LabResult{completedResult(a.ID, "Glucose Fasting", "95", false, FlagNormal)})
	if rp == nil {
		t.Fatal("expected report")
	}
	if !strings.Contains(rp.ClinicalSummary, "All results are within normal limits.") {
		t.Errorf("missing all-normal advisory: %q", rp.ClinicalSummary)
	}
	if strings.Contains(rp.ClinicalSummary, "Abnormal Results:") {
		t.Errorf("unexpected abnormal section: %q", rp.ClinicalSummary)
	}
	if len(rp.AbnormalFindings) != 0 {
		t.Errorf("abnormal findings = %v, want none", rp.AbnormalFindings)
	}
}
