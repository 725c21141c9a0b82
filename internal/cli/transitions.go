package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yungbote/housedesk-backend/internal/domain/requests"
)

// WriteTransitions prints the transition table, one move per line.
func WriteTransitions(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tWHO")
	for _, t := range requests.Table() {
		who := "staff"
		if t.Resident {
			who = "creator"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.From, t.To, who)
	}
	for _, s := range requests.AllStatuses {
		if s.IsTerminal() {
			fmt.Fprintf(tw, "%s\t-\tfinal\n", s)
		}
	}
	return tw.Flush()
}

// TransitionsCmd returns the transitions command.
func TransitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions",
		Short: "Print the request status transition table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return WriteTransitions(cmd.OutOrStdout())
		},
	}
}
