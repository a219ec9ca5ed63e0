package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

// statusLine is one labelled row of `vodbridge status` output.
type statusLine struct {
	Label  string
	Kind   statusKind
	Detail string
}

type statusSection struct {
	Title string
	Lines []statusLine
}

func renderStatus(w io.Writer, sections []statusSection, colorize bool) {
	for i, section := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		for _, line := range renderSectionHeader(section.Title, colorize) {
			fmt.Fprintln(w, line)
		}
		for _, line := range section.Lines {
			fmt.Fprintln(w, renderStatusLine(line.Label, line.Kind, line.Detail, colorize))
		}
	}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	text := "[" + kind.String() + "]"
	if message != "" {
		text += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)
	if !colorize {
		return base
	}
	return kind.color() + base + ansiReset
}

func (k statusKind) String() string {
	switch k {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (k statusKind) color() string {
	switch k {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
