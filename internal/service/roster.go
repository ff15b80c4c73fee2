package service

import (
	"strings"

	"ticket-booking/internal/model"

	"github.com/samber/lo"
)

// normalizeRoster returns exactly quantity attendees. Missing entries and
// blank fields are filled with the purchaser's identity; extras are dropped.
func normalizeRoster(given []model.Attendee, purchaser model.ActorAttributes, quantity int) []model.Attendee {
	return lo.Times(quantity, func(i int) model.Attendee {
		if i >= len(given) {
			return model.Attendee{Name: purchaser.Name, Email: purchaser.Email, Phone: purchaser.Phone}
		}
		a := given[i]
		return model.Attendee{
			Name:  firstNonBlank(a.Name, purchaser.Name),
			Email: firstNonBlank(a.Email, purchaser.Email),
			Phone: firstNonBlank(a.Phone, purchaser.Phone),
		}
	})
}

func firstNonBlank(values ...string) string {
	trimmed := lo.Map(values, func(v string, _ int) string { return strings.TrimSpace(v) })
	v, _ := lo.Coalesce(trimmed...)
	return v
}
