package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/activetext/internal/intelligence/pattern_registry"
)

// PatternInfo describes one built-in pattern.
type PatternInfo struct {
	Kind   string `json:"kind"`
	Source string `json:"source"`
}

// PatternList is the printable output of the patterns command.
type PatternList []PatternInfo

// NewPatternsCmd creates the patterns command.
func NewPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Print the built-in entity patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			builtins := pattern_registry.Builtins()
			list := make(PatternList, 0, len(builtins))
			for _, b := range builtins {
				list = append(list, PatternInfo{Kind: string(b.Kind), Source: b.Source})
			}
			return PrintResult(cmd, list)
		},
	}
}

func (l PatternList) String() string {
	var sb strings.Builder
	for _, p := range l {
		fmt.Fprintf(&sb, "%s\n  %s\n", p.Kind, p.Source)
	}
	return sb.String()
}

func (l PatternList) TableHeaders() []string { return []string{"KIND", "PATTERN"} }

func (l PatternList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		rows = append(rows, []string{p.Kind, p.Source})
	}
	return rows
}
