package lab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GetReport returns the synthesized report for an order.
func (s *Service) GetReport(ctx context.Context, orderID uuid.UUID) (*LabReport, error) {
	return s.reports.GetByOrder(ctx, orderID)
}

// GenerateReport synthesizes (or re-synthesizes) the report for an order.
// Regeneration is idempotent: the report keeps its id and number and only
// its content is replaced.
func (s *Service) GenerateReport(ctx context.Context, orderID uuid.UUID) (*LabReport, error) {
	var report *LabReport
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		report, err = s.generateReport(ctx, orderID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) generateReport(ctx context.Context, orderID uuid.UUID, amended bool) (*LabReport, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.orders.ListLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	report := buildReport(order, lines, results)
	if report == nil {
		return nil, ErrNoReport
	}
	if amended {
		report.Status = ReportAmended
	}

	number, err := s.reports.NextReportNumber(ctx)
	if err != nil {
		return nil, err
	}
	report.ReportNumber = number
	if err := s.reports.Upsert(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// buildReport assembles the report content from an order's lines and results.
// A fully cancelled order yields no report.
func buildReport(order *LabOrder, lines []*OrderedTest, results []*LabResult) *LabReport {
	cancelled := 0
	terminal := 0
	for _, l := range lines {
		if l.Status == TestCancelled {
			cancelled++
		}
		if l.Status == TestCompleted || l.Status == TestCancelled {
			terminal++
		}
	}
	if len(lines) == 0 || cancelled == len(lines) {
		return nil
	}

	byLine := make(map[uuid.UUID]*LabResult, len(results))
	for _, r := range results {
		byLine[r.OrderedTestID] = r
	}

	var abnormal, normal []*LabResult
	completed := 0
	for _, r := range results {
		switch r.Status {
		case ResultCompleted, ResultReviewed, ResultAmended:
		default:
			continue
		}
		completed++
		if r.IsAbnormal {
			abnormal = append(abnormal, r)
		} else {
			normal = append(normal, r)
		}
	}

	findings := make([]string, 0, len(abnormal))
	for _, r := range abnormal {
		findings = append(findings, resultLine(r))
	}

	var b strings.Builder
	if len(abnormal) > 0 {
		b.WriteString("Abnormal Results:\n")
		for _, r := range abnormal {
			b.WriteString("  " + resultLine(r) + "\n")
		}
	}
	if len(normal) > 0 {
		b.WriteString("Normal Results:\n")
		for _, r := range normal {
			b.WriteString("  " + resultLine(r) + "\n")
		}
	}
	if len(abnormal) > 0 {
		b.WriteString("Please consult the ordering doctor regarding the abnormal results.")
	} else {
		b.WriteString("All results are within normal limits.")
	}

	// Final once every line is terminal and every non-cancelled line has a
	// completed result; otherwise the report is preliminary.
	status := ReportPreliminary
	if terminal == len(lines) {
		final := true
		for _, l := range lines {
			if l.Status == TestCancelled {
				continue
			}
			r, ok := byLine[l.ID]
			if !ok || (r.Status != ResultCompleted && r.Status != ResultReviewed && r.Status != ResultAmended) {
				final = false
				break
			}
		}
		if final {
			status = ReportFinal
		}
	}

	return &LabReport{
		OrderID:          order.ID,
		Status:           status,
		TotalTests:       len(lines),
		CompletedTests:   completed,
		AbnormalCount:    len(abnormal),
		AbnormalFindings: findings,
		ClinicalSummary:  b.String(),
		GeneratedAt:      time.Now(),
	}
}

func resultLine(r *LabResult) string {
	value := ""
	if r.Value != nil {
		value = *r.Value
	}
	line := r.TestName + ": " + value
	if r.Unit != nil && *r.Unit != "" {
		line += " " + *r.Unit
	}
	return fmt.Sprintf("%s (%s)", line, r.Flag)
}
