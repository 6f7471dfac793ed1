package ledger

import "time"

// CapacityLimits holds the configured per-day booking limits. A zero value
// means "not configured", which the policy treats as zero capacity: the
// system would rather reject bookings than silently over-book.
type CapacityLimits struct {
	ConsultationDaily     int
	ConsultationWednesday int // reduced staffing day
	ReimbursementDaily    int
}

// CapacityPolicy maps (request type, date) to the maximum bookings allowed
// that day. Emergencies never consult the policy.
type CapacityPolicy struct {
	limits CapacityLimits
}

func NewCapacityPolicy(limits CapacityLimits) *CapacityPolicy {
	return &CapacityPolicy{limits: limits}
}

func (p *CapacityPolicy) CapacityFor(rt RequestType, date Date) int {
	var limit int
	switch rt {
	case TypeConsultation, TypeAnnualExam:
		limit = p.limits.ConsultationDaily
		if date.Weekday() == time.Wednesday {
			limit = p.limits.ConsultationWednesday
		}
	case TypeReimbursement:
		limit = p.limits.ReimbursementDaily
	}

	if limit < 0 {
		return 0
	}
	return limit
}
