package notify

import "github.com/bluedeer/waterbill/internal/model"

// BillSummary aggregates the latest bills of all tracked properties.
type BillSummary struct {
	Properties int                  `json:"properties"`
	WithBill   int                  `json:"with_bill"`
	TotalDue   model.Cents          `json:"total_due"`
	Current    int                  `json:"current"`
	Paid       int                  `json:"paid"`
	Unknown    int                  `json:"unknown"`
	Overdue    []model.PropertyBill `json:"overdue"`
	DueSoon    []model.PropertyBill `json:"due_soon"`
}

// OverdueTotal sums the overdue balances.
func (s *BillSummary) OverdueTotal() model.Cents {
	var total model.Cents
	for _, pb := range s.Overdue {
		total += pb.Latest.AmountDue
	}
	return total
}

// Summarize groups bills by status. Properties without a bill count as
// unknown and add nothing to the total.
func Summarize(bills []model.PropertyBill) BillSummary {
	s := BillSummary{Properties: len(bills)}
	for _, pb := range bills {
		if pb.Latest == nil {
			s.Unknown++
			continue
		}
		s.WithBill++
		s.TotalDue += pb.Latest.AmountDue

		switch pb.Latest.Status {
		case model.StatusOverdue:
			s.Overdue = append(s.Overdue, pb)
		case model.StatusDueSoon:
			s.DueSoon = append(s.DueSoon, pb)
		case model.StatusCurrent:
			s.Current++
		case model.StatusPaid:
			s.Paid++
		default:
			s.Unknown++
		}
	}
	return s
}
