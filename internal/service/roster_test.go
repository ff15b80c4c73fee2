package service

import (
	"testing"

	"ticket-booking/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoster(t *testing.T) {
	purchaser := model.ActorAttributes{
		ID:    uuid.New(),
		Name:  "Mei Lin",
		Email: "mei@example.com",
		Phone: "+886912345678",
	}

	t.Run("pads missing attendees with purchaser", func(t *testing.T) {
		roster := normalizeRoster([]model.Attendee{{Name: "Guest"}}, purchaser, 3)

		assert.Equal(t, []model.Attendee{
			{Name: "Guest", Email: purchaser.Email, Phone: purchaser.Phone},
			{Name: purchaser.Name, Email: purchaser.Email, Phone: purchaser.Phone},
			{Name: purchaser.Name, Email: purchaser.Email, Phone: purchaser.Phone},
		}, roster)
	})

	t.Run("blank fields count as missing", func(t *testing.T) {
		roster := normalizeRoster([]model.Attendee{{Name: "  ", Email: "guest@example.com"}}, purchaser, 1)

		assert.Equal(t, model.Attendee{Name: purchaser.Name, Email: "guest@example.com", Phone: purchaser.Phone}, roster[0])
	})

	t.Run("extra attendees are dropped", func(t *testing.T) {
		given := []model.Attendee{{Name: "A"}, {Name: "B"}, {Name: "C"}}
		roster := normalizeRoster(given, purchaser, 2)

		assert.Len(t, roster, 2)
		assert.Equal(t, "B", roster[1].Name)
	})
}
