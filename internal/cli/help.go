package cli

import (
	"bytes"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

const (
	redColor = "#cc0000"
)

// additionalSections contains additional help sections for specific commands.
var additionalSections = map[string][]ffhelp.Section{
	"run": {
		{
			Title: "EXAMPLES",
			Lines: []string{
				`dockertester run --image=docker/getting-started --port=80`,
				`dockertester run --image=redis:7 --port=6379 --hold=false --json -- --name cache`,
			},
			LinePrefix: ffhelp.DefaultLinePrefix,
		},
	},
	"postgres": {
		{
			Title: "EXAMPLES",
			Lines: []string{
				`dockertester postgres --dir=db/migrations`,
				`dockertester postgres --dir=db/migrations --migrator=golang-migrate --count=4 --json`,
			},
			LinePrefix: ffhelp.DefaultLinePrefix,
		},
	},
}

func createHelp(st *state, cmd *ff.Command) ffhelp.Help {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(redColor))
	render := func(s string) string {
		if val := st.getenv("NO_COLOR"); val != "" {
			if ok, err := strconv.ParseBool(val); err == nil && ok {
				return s
			}
		}
		return style.Render(s)
	}
	if selected := cmd.GetSelected(); selected != nil {
		cmd = selected
	}
	// For the root command, we're going to print a custom help message.
	if cmd.Name == rootName {
		return rootHelp(cmd, render)
	}
	// For all other commands, we're going to print the default help message.
	var help ffhelp.Help

	if cmd.LongHelp != "" {
		section := ffhelp.NewUntitledSection(cmd.LongHelp)
		help = append(help, section)
	}

	title := cmd.Name
	if cmd.ShortHelp != "" {
		title = title + " -- " + cmd.ShortHelp
	}
	help = append(help, ffhelp.NewSection(render("COMMAND"), title))

	if cmd.Usage != "" {
		help = append(help, ffhelp.NewSection(render("USAGE"), cmd.Usage))
	}

	if len(cmd.Subcommands) > 0 {
		section := ffhelp.NewSubcommandsSection(cmd.Subcommands)
		section.Title = render(section.Title)
		help = append(help, section)
	}

	for _, section := range ffhelp.NewFlagsSections(cmd.Flags) {
		section.Title = render(section.Title)
		help = append(help, section)
	}
	if sections, ok := additionalSections[cmd.Name]; ok {
		for _, section := range sections {
			section.Title = render(section.Title)
			help = append(help, section)
		}
	}

	return help
}

func rootHelp(cmd *ff.Command, render func(s string) string) ffhelp.Help {
	var help ffhelp.Help

	section := ffhelp.NewUntitledSection("Throwaway docker containers and migrated PostgreSQL databases for tests.")
	help = append(help, section)

	section = ffhelp.NewSection(render("USAGE"), cmd.Usage)
	help = append(help, section)

	section = ffhelp.NewSubcommandsSection(cmd.Subcommands)
	section.Title = render("COMMANDS")
	help = append(help, section)

	for _, section := range ffhelp.NewFlagsSections(cmd.Flags) {
		section.Title = render(section.Title)
		help = append(help, section)
	}

	section = ffhelp.NewUntitledSection(render("ENVIRONMENT VARIABLES"))
	keys := []struct {
		name        string
		description string
	}{
		{"DOCKERTESTER_RUNTIME", "Container runtime, cli or engine (default cli)"},
		{"DOCKERTESTER_DOCKER_BINARY", "Docker binary used by the cli runtime (default docker)"},
		{"DOCKERTESTER_DEBUG", "Log every runtime call"},
		{"DOCKER_HOST", "Docker daemon used by the engine runtime"},
		{"NO_COLOR", "Disable color output"},
	}
	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	for _, v := range keys {
		_, _ = tw.Write([]byte(ffhelp.DefaultLinePrefix + v.name + "\t" + v.description + "\n"))
	}
	tw.Flush()
	section.Lines = append(section.Lines, buf.String())
	help = append(help, section)

	section = ffhelp.NewUntitledSection(render("LEARN MORE"))
	section.Lines = append(section.Lines, ffhelp.DefaultLinePrefix+"Use 'dockertester <command> --help' for more information about a command")
	help = append(help, section)

	return help
}
