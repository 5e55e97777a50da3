package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(NeonMagenta)
	helpDescStyle    = lipgloss.NewStyle().Foreground(NeonViolet).Italic(true)
	helpSectionStyle = lipgloss.NewStyle().Bold(true).Foreground(NeonCyan)
	helpFlagStyle    = lipgloss.NewStyle().Bold(true).Foreground(NeonAmber)
	helpDefaultStyle = lipgloss.NewStyle().Foreground(SmokeGray).Italic(true)
)

// generalGroup collects flags without a group tag, printed last
const generalGroup = "General"

type helpEntry struct {
	label string
	help  string
}

// StyledHelpPrinter renders help with flags grouped by their kong group tag
// and aligned in one column
func StyledHelpPrinter(options kong.HelpOptions) kong.HelpPrinter {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		name := ctx.Model.Name

		var sb strings.Builder
		fmt.Fprintf(&sb, "%s  %s\n\n", helpTitleStyle.Render(appName), helpDescStyle.Render(appTagline))
		sb.WriteString(helpSectionStyle.Render("Usage:"))
		fmt.Fprintf(&sb, "\n  %s <track>... [flags]\n  %s --config set.toml [flags]\n", name, name)

		order, groups := groupFlags(ctx.Model.Node.Flags)
		width := 0
		for _, entries := range groups {
			for _, e := range entries {
				width = max(width, len(e.label))
			}
		}

		for _, title := range order {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render(title + ":"))
			sb.WriteString("\n")
			for _, e := range groups[title] {
				sb.WriteString("  ")
				sb.WriteString(helpFlagStyle.Render(e.label))
				sb.WriteString(strings.Repeat(" ", width-len(e.label)+2))
				sb.WriteString(e.help)
				sb.WriteString("\n")
			}
		}

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

// groupFlags sorts flags into sections in declaration order, with
// ungrouped flags (help included) in a trailing General section
func groupFlags(flags []*kong.Flag) ([]string, map[string][]helpEntry) {
	var order []string
	groups := map[string][]helpEntry{}
	add := func(title string, e helpEntry) {
		if _, seen := groups[title]; !seen {
			order = append(order, title)
		}
		groups[title] = append(groups[title], e)
	}

	var general []helpEntry
	for _, f := range flags {
		if f.Hidden {
			continue
		}
		e := helpEntry{label: flagLabel(f), help: f.Help}
		if f.HasDefault && !f.IsBool() && f.Default != "" && f.Default != "0" {
			e.help += " " + helpDefaultStyle.Render("(default: "+f.Default+")")
		}
		if f.Group == nil || f.Group.Title == "" {
			general = append(general, e)
			continue
		}
		add(f.Group.Title, e)
	}
	for _, e := range general {
		add(generalGroup, e)
	}
	return order, groups
}

func flagLabel(f *kong.Flag) string {
	label := "    --" + f.Name
	if f.Short != 0 {
		label = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
	}
	if !f.IsBool() && f.PlaceHolder != "" {
		label += "=" + strings.ToUpper(f.PlaceHolder)
	}
	return label
}
