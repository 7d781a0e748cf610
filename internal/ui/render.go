// Package ui renders operator-facing output for the ambient-mcp CLI: the
// tool catalog, single tool results and credential status. Nothing here is
// used on the MCP stdio path.
package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ambientmcp/internal/ui/styles"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

const defaultWidth = 80

// ToolEntry is one row of the catalog listing.
type ToolEntry struct {
	Name        string
	Category    string
	Description string
	Params      []string
}

// DetectGlamourStyle picks a glamour style for the terminal. GLAMOUR_STYLE
// wins when set to anything but "auto"; otherwise the background is probed
// and "dark" is assumed if the terminal does not answer within timeout.
func DetectGlamourStyle(timeout time.Duration) string {
	defaultStyle := "dark"

	style := os.Getenv("GLAMOUR_STYLE")
	if style != "" && style != "auto" {
		return style
	}

	ch := make(chan string, 1)
	go func() {
		out := termenv.NewOutput(os.Stdout)
		if out.HasDarkBackground() {
			ch <- "dark"
			return
		}
		ch <- "light"
	}()

	select {
	case s := <-ch:
		return s
	case <-time.After(timeout):
		return defaultStyle
	}
}

// RenderResult renders a tool result for a terminal. JSON results become a
// highlighted code block; error lines are shown in the error style.
func RenderResult(text string, isError bool, style string, width int) (string, error) {
	if isError {
		return styles.ErrorStyle.Render(wordwrap.String(text, widthOr(width))) + "\n", nil
	}
	if !json.Valid([]byte(text)) {
		return text + "\n", nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(widthOr(width)),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}

	out, err := renderer.Render("```json\n" + text + "\n```\n")
	if err != nil {
		return "", fmt.Errorf("failed to render result: %w", err)
	}
	return out, nil
}

// RenderCatalog lists tools grouped by category, in the order given.
func RenderCatalog(title string, tools []ToolEntry, width int) string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(title))
	b.WriteString("\n")

	category := ""
	for _, t := range tools {
		if t.Category != category {
			category = t.Category
			b.WriteString(styles.CategoryStyle.Render(strings.ToUpper(category)))
			b.WriteString("\n")
		}

		line := "  " + styles.ToolNameStyle.Render(t.Name)
		if len(t.Params) > 0 {
			line += " " + styles.ParamStyle.Render("("+strings.Join(t.Params, ", ")+")")
		}
		b.WriteString(line)
		b.WriteString("\n")

		desc := wordwrap.String(t.Description, widthOr(width)-4)
		b.WriteString(styles.DescriptionStyle.Render(desc))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("%d tools", len(tools))))
	b.WriteString("\n")
	return b.String()
}

// KeyValue renders one aligned status row.
func KeyValue(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		styles.LabelStyle.Render(label),
		styles.ValueStyle.Render(value),
	)
}

// Success and Failure render one-line outcomes.
func Success(msg string) string { return styles.SuccessStyle.Render(msg) }

func Failure(msg string) string { return styles.ErrorStyle.Render(msg) }

func widthOr(width int) int {
	if width <= 0 {
		return defaultWidth
	}
	return width
}
