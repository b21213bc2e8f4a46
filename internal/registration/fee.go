package registration

import "techsymposium/internal/models"

// DefaultRate is the fee per participant in whole currency units.
const DefaultRate int64 = 100

type FeeCalculator struct {
	Rate int64
}

func NewFeeCalculator(rate int64) FeeCalculator {
	if rate <= 0 {
		rate = DefaultRate
	}
	return FeeCalculator{Rate: rate}
}

// Calculate returns the participant count and the total fee. Team members
// only count for group registrations.
func (f FeeCalculator) Calculate(eventType string, teamMembers int) (int, int64) {
	rate := f.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	participants := 1
	if eventType == models.RegistrationTypeGroup {
		participants = teamMembers + 1
	}
	return participants, rate * int64(participants)
}
