package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Help group keys used in the CLI struct's group tags.
const (
	GroupDetection = "detection"
	GroupOutput    = "output"
)

// Groups returns the flag sections shown by StyledHelpPrinter, in order.
// Flags without a group are listed first under "General".
func Groups() []kong.Group {
	return []kong.Group{
		{
			Key:         GroupDetection,
			Title:       "Silence detection",
			Description: "Unset flags fall back to the config file, then to built-in defaults.",
		},
		{
			Key:   GroupOutput,
			Title: "Output",
		},
	}
}

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFA500")).
				MarginTop(1)

	helpNoteStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AA00")).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAAA")).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

// examples are shown at the end of the help screen.
var examples = []string{
	"hushcut episode.wav",
	"hushcut -m sensitive --margin 400 interview.mp4",
	"hushcut -t 350 -o trimmed lecture.mkv",
	"hushcut -c heavy --keep-temp *.mp4",
}

// StyledHelpPrinter renders hushcut's help: input files, then flags grouped
// into general, silence detection and output sections.
func StyledHelpPrinter(options kong.HelpOptions) func(options kong.HelpOptions, ctx *kong.Context) error {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		sb.WriteString(helpTitleStyle.Render("Hushcut ✂"))
		sb.WriteString("\n")
		sb.WriteString(helpDescStyle.Render(ctx.Model.Help))
		sb.WriteString("\n")

		args := getArguments(ctx)
		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		sb.WriteString(usageLine(ctx.Model.Name, args))
		sb.WriteString("\n")

		if len(args) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Files:"))
			sb.WriteString("\n")
			for _, arg := range args {
				sb.WriteString("  ")
				sb.WriteString(helpArgStyle.Render(arg.name))
				if arg.help != "" {
					sb.WriteString("  ")
					sb.WriteString(arg.help)
				}
				sb.WriteString("\n")
			}
			sb.WriteString("  ")
			sb.WriteString(helpNoteStyle.Render("WAV is read directly; MP3, MP4 and MKV go through ffmpeg."))
			sb.WriteString("\n")
		}

		for _, section := range flagSections(getFlags(ctx)) {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render(section.title + ":"))
			sb.WriteString("\n")
			if section.description != "" {
				sb.WriteString("  ")
				sb.WriteString(helpNoteStyle.Render(section.description))
				sb.WriteString("\n")
			}
			for _, f := range section.flags {
				sb.WriteString("  ")
				sb.WriteString(helpFlagStyle.Render(f.flags))
				if f.help != "" {
					sb.WriteString("  ")
					sb.WriteString(f.help)
				}
				if note := f.note(); note != "" {
					sb.WriteString(" ")
					sb.WriteString(helpDefaultStyle.Render(note))
				}
				sb.WriteString("\n")
			}
		}

		sb.WriteString("\n")
		sb.WriteString(helpSectionStyle.Render("Examples:"))
		sb.WriteString("\n")
		for _, ex := range examples {
			sb.WriteString("  ")
			sb.WriteString(ex)
			sb.WriteString("\n")
		}

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

type argument struct {
	name string
	help string
}

type flag struct {
	flags      string
	help       string
	defaultVal string
	configKey  string // YAML key that supplies the value when the flag is unset
	group      *kong.Group
}

// note is the trailing hint for a flag: its default, or the config key it
// overrides.
func (f flag) note() string {
	switch {
	case f.defaultVal != "":
		return "(default: " + f.defaultVal + ")"
	case f.configKey != "":
		return "(config: " + f.configKey + ")"
	}
	return ""
}

type section struct {
	title       string
	description string
	flags       []flag
}

// flagSections splits flags into the ungrouped "General" section followed by
// one section per group, in order of first appearance.
func flagSections(flags []flag) []section {
	general := section{title: "General"}
	var grouped []section
	index := map[string]int{}

	for _, f := range flags {
		if f.group == nil {
			general.flags = append(general.flags, f)
			continue
		}
		i, ok := index[f.group.Key]
		if !ok {
			title := f.group.Title
			if title == "" {
				title = f.group.Key
			}
			grouped = append(grouped, section{title: title, description: f.group.Description})
			i = len(grouped) - 1
			index[f.group.Key] = i
		}
		grouped[i].flags = append(grouped[i].flags, f)
	}

	if len(general.flags) == 0 {
		return grouped
	}
	return append([]section{general}, grouped...)
}

func usageLine(name string, args []argument) string {
	parts := []string{name, "[flags]"}
	for _, arg := range args {
		parts = append(parts, arg.name)
	}
	return strings.Join(parts, " ")
}

func getArguments(ctx *kong.Context) []argument {
	var args []argument
	for _, arg := range ctx.Model.Node.Positional {
		args = append(args, argument{name: arg.Summary(), help: arg.Help})
	}
	return args
}

func getFlags(ctx *kong.Context) []flag {
	flags := []flag{{
		flags: "-h, --help",
		help:  "Show this help.",
	}}

	for _, f := range ctx.Model.Node.Flags {
		if f.Name == "help" || f.Hidden {
			continue
		}

		name := "--" + f.Name
		if f.Short != 0 {
			name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		}
		if !f.IsBool() && f.PlaceHolder != "" {
			name += "=" + strings.ToUpper(f.PlaceHolder)
		}

		var configKey string
		if f.Tag != nil {
			configKey = f.Tag.Get("config")
		}

		flags = append(flags, flag{
			flags:      name,
			help:       f.Help,
			defaultVal: f.Default,
			configKey:  configKey,
			group:      f.Group,
		})
	}

	return flags
}
