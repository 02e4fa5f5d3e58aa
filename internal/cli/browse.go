package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/packshelf/packshelf/pkg/provider"
	"github.com/packshelf/packshelf/pkg/provider/jsonindex"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the browse command: load a JSON index and pick a
// package interactively.
func (c *CLI) browseCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "browse <index-url>",
		Short: "Browse the packages of a JSON index interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			indexURL := args[0]

			if !jsonindex.MatchURL(indexURL) {
				return fmt.Errorf("not a JSON index URL: %s", indexURL)
			}

			backend, err := c.newBackend(noCache)
			if err != nil {
				return err
			}
			defer backend.Close()

			prov := jsonindex.New(indexURL, c.config.Settings(), backend)

			spinner := newSpinnerWithContext(ctx, "Loading "+indexURL)
			spinner.Start()
			pkgs, err := prov.FetchPackages(ctx, nil)
			spinner.Stop()
			if err != nil {
				printError("Index unavailable: %s", indexURL)
				return err
			}
			if len(pkgs) == 0 {
				printInfo("Index lists no packages for this platform")
				return nil
			}

			model := newPackageListModel(pkgs)
			final, err := tea.NewProgram(model).Run()
			if err != nil {
				return err
			}

			m := final.(packageListModel)
			if m.selected == "" {
				return nil
			}

			out, err := json.MarshalIndent(pkgs[m.selected], "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the HTTP response cache")

	return cmd
}

// packageListModel is the bubbletea model for interactive package selection.
type packageListModel struct {
	names    []string
	pkgs     provider.Packages
	cursor   int
	offset   int
	height   int
	selected string
}

func newPackageListModel(pkgs provider.Packages) packageListModel {
	names := make([]string, 0, len(pkgs))
	for name := range pkgs {
		names = append(names, name)
	}
	sort.Strings(names)

	return packageListModel{
		names:  names,
		pkgs:   pkgs,
		height: 15,
	}
}

func (m packageListModel) Init() tea.Cmd {
	return nil
}

func (m packageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.names)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			m.selected = m.names[m.cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if msg.Height > 4 {
			m.height = msg.Height - 4
		}
	}
	return m, nil
}

func (m packageListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Select a package (%d total)", len(m.names))))
	b.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.names))
	for i := m.offset; i < end; i++ {
		name := m.names[i]
		line := "  " + listNormalStyle.Render(name)
		if i == m.cursor {
			line = listSelectedStyle.Render("> " + name)
			if desc := m.pkgs[name].Description; desc != "" {
				line += "  " + listDimStyle.Render(desc)
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("up/down: move  enter: select  q: quit"))
	b.WriteString("\n")
	return b.String()
}
