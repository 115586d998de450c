package chat

import "github.com/mazadclick/clientsync/internal/model"

// DayGroup is one calendar day's slice of the message list, for display
// headers. It is a derived projection; stored order is never mutated.
type DayGroup struct {
	Date     string // YYYY-MM-DD
	Messages []model.Message
}

// DayGroups splits the current message list into consecutive calendar-day
// groups, preserving ascending CreatedAt order within and across groups.
func (m *Manager) DayGroups() []DayGroup {
	msgs := m.Messages()
	var groups []DayGroup
	for _, msg := range msgs {
		day := msg.CreatedAt.Format("2006-01-02")
		if len(groups) == 0 || groups[len(groups)-1].Date != day {
			groups = append(groups, DayGroup{Date: day})
		}
		last := &groups[len(groups)-1]
		last.Messages = append(last.Messages, msg)
	}
	return groups
}
