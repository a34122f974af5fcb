package status

import (
	"fmt"
	"strings"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// RenderZones lists charging logics, active ones first in input order.
func RenderZones(logics []domain.ChargingLogic) string {
	s := newStyles()
	lines := []string{
		s.title.Render("Charging Zones"),
		s.header.Render(fmt.Sprintf("zones: %d", len(logics))),
	}

	if len(logics) == 0 {
		lines = append(lines, s.empty.Render("No charging logic configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	ordered := make([]domain.ChargingLogic, 0, len(logics))
	for _, logic := range logics {
		if logic.Active {
			ordered = append(ordered, logic)
		}
	}
	for _, logic := range logics {
		if !logic.Active {
			ordered = append(ordered, logic)
		}
	}

	for _, logic := range ordered {
		lines = append(lines, zoneEntry(logic, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderZoneMatch describes the charging logic that applies at a position.
func RenderZoneMatch(logic domain.ChargingLogic) string {
	s := newStyles()
	return lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render("Zone at this position"),
		zoneEntry(logic, s),
	)
}

func zoneEntry(logic domain.ChargingLogic, s styles) string {
	name := strings.TrimSpace(logic.LocationName)
	if name == "" {
		name = fmt.Sprintf("location #%d", logic.LocationID)
	}

	status := s.stateOK.Render("active")
	if !logic.Active {
		status = s.stateIdle.Render("inactive")
	}

	line := fmt.Sprintf("%s %s %s", s.zone.Render(name), status,
		s.detail.Render(fmt.Sprintf("%s %s", logic.Amount.StringFixed(2), logic.RateUnit.Label())))
	if window := timeWindow(logic.StartTime, logic.EndTime); window != "" {
		line += " " + s.hint.Render(window)
	}
	return line
}

func timeWindow(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return "from " + start
	case start == "":
		return "until " + end
	default:
		return start + "-" + end
	}
}
