package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/zonecharge/internal/application"
	"github.com/bnema/zonecharge/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Dashboard is everything the status view shows at one instant.
type Dashboard struct {
	Session        domain.SessionState
	Balance        application.BalanceSnapshot
	Coordinator    application.CoordinatorStatus
	RetryAvailable bool
}

type RenderOptions struct {
	Now time.Time
	// StaleAfter marks the last position stale once it is older. Zero disables.
	StaleAfter time.Duration
}

// RenderDashboard renders d without going through a bubbletea program.
func RenderDashboard(d Dashboard, opts RenderOptions) string {
	return renderView(d, opts, newStyles())
}

func renderView(d Dashboard, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Zone Charge"),
		s.header.Render(sessionLine(d.Session)),
	}

	if !d.Session.IsAuthenticated {
		lines = append(lines, s.empty.Render("Not logged in. Run `zc login` first."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left,
		balanceLine(d.Balance, s),
		zoneLine(d.Balance.Zone, s),
	)))

	if d.Session.PollingAllowed() {
		lines = append(lines, s.section.Render(renderCoordinator(d, opts, s)))
	} else {
		lines = append(lines, s.section.Render(s.empty.Render("Zone polling runs for user accounts only.")))
	}

	if d.Balance.Advisory != "" {
		lines = append(lines, s.advisory.Render("! "+d.Balance.Advisory))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func sessionLine(session domain.SessionState) string {
	if !session.IsAuthenticated {
		return "session: anonymous"
	}
	return fmt.Sprintf("session: %s (%s)", session.Username, session.Role)
}

func balanceLine(snap application.BalanceSnapshot, s styles) string {
	label := s.label.Render("balance:")
	if !snap.BalanceKnown {
		return label + " " + s.empty.Render("n/a")
	}

	line := label + " " + s.balance.Render(snap.Balance.String())
	if snap.Optimistic {
		line += " " + s.hint.Render("(estimate, confirming)")
	}
	return line
}

func zoneLine(zone *application.ZoneDisplay, s styles) string {
	label := s.label.Render("zone:")
	if zone == nil {
		return label + " " + s.empty.Render("outside priced zones")
	}

	name := strings.TrimSpace(zone.Name)
	if name == "" {
		name = fmt.Sprintf("zone #%d", zone.ZoneID)
	}
	return fmt.Sprintf("%s %s %s", label, s.zone.Render(name),
		s.detail.Render(fmt.Sprintf("charging %s %s", zone.Amount.StringFixed(2), zone.RateUnit.Label())))
}

func renderCoordinator(d Dashboard, opts RenderOptions, s styles) string {
	st := d.Coordinator
	lines := []string{
		s.label.Render("tracking:") + " " + stateStyle(st.State, s).Render(stateLabel(st.State)),
	}

	if st.HasSample {
		lines = append(lines, positionLine(st.LastSample, opts, s))
	}

	if st.State == application.StatePermissionDenied {
		if st.LastError != nil {
			lines = append(lines, s.warning.Render(st.LastError.Error()))
		}
		if d.RetryAvailable {
			lines = append(lines, s.hint.Render("press r to retry location access"))
		}
	}

	lines = append(lines, s.hint.Render(fmt.Sprintf("ticks %d  evaluations %d  skipped %d  failures %d",
		st.Ticks, st.Evaluations, st.Skipped, st.Failures)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func positionLine(sample domain.LocationSample, opts RenderOptions, s styles) string {
	text := fmt.Sprintf("%s, %s", domain.FormatCoordinate(sample.Latitude), domain.FormatCoordinate(sample.Longitude))
	if sample.Accuracy > 0 {
		text += fmt.Sprintf(" ±%.0fm", sample.Accuracy)
	}

	line := s.label.Render("position:") + " "
	if opts.Now.IsZero() || sample.CapturedAt.IsZero() {
		return line + s.detail.Render(text)
	}

	age := sample.Age(opts.Now)
	style := lipgloss.NewStyle().Foreground(ageColor(age, opts.StaleAfter))
	line += style.Render(fmt.Sprintf("%s (%s)", text, formatAge(age)))
	if opts.StaleAfter > 0 && age > opts.StaleAfter {
		line += " " + s.warning.Render("[stale]")
	}
	return line
}

func stateLabel(state application.CoordinatorState) string {
	switch state {
	case application.StateIdle:
		return "idle"
	case application.StateAwaitingLocationPermission:
		return "acquiring location"
	case application.StateWatching:
		return "watching"
	case application.StatePermissionDenied:
		return "location unavailable"
	default:
		return string(state)
	}
}

func stateStyle(state application.CoordinatorState, s styles) lipgloss.Style {
	switch state {
	case application.StateWatching:
		return s.stateOK
	case application.StateAwaitingLocationPermission:
		return s.stateWait
	case application.StatePermissionDenied:
		return s.stateBad
	default:
		return s.stateIdle
	}
}

func formatAge(age time.Duration) string {
	switch {
	case age < time.Second:
		return "just now"
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
}

// ageColor fades from bright white for a fresh fix to grey at staleAfter.
func ageColor(age, staleAfter time.Duration) lipgloss.Color {
	if staleAfter <= 0 {
		return lipgloss.Color("255")
	}
	return interpolateColor(staleAfter.Seconds()-age.Seconds(), 0, staleAfter.Seconds())
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp, 240 faded to 255 bright.
	baseColor := 240.0
	targetColor := 255.0
	colorCode := int(baseColor + (targetColor-baseColor)*normalized)

	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
