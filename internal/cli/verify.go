package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/housedesk-backend/internal/data/repos"
	reqrepo "github.com/yungbote/housedesk-backend/internal/data/repos/requests"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
)

const verifyPageSize = 200

type LedgerProblem struct {
	RequestID uuid.UUID
	Err       error
}

// VerifyLedgers replays every request's history and reports requests whose
// stored status or sequence numbers disagree with their ledger.
func VerifyLedgers(ctx context.Context, set repos.Set) (checked int, problems []LedgerProblem, err error) {
	dbc := dbctx.Context{Ctx: ctx}
	for offset := 0; ; offset += verifyPageSize {
		page, total, err := set.Requests.List(dbc, reqrepo.ListFilter{Offset: offset, Limit: verifyPageSize})
		if err != nil {
			return checked, problems, err
		}
		for _, req := range page {
			entries, err := set.History.ListFor(dbc, req.ID)
			if err != nil {
				return checked, problems, err
			}
			checked++
			if perr := checkLedger(req, entries); perr != nil {
				problems = append(problems, LedgerProblem{RequestID: req.ID, Err: perr})
			}
		}
		if len(page) == 0 || int64(offset+len(page)) >= total {
			return checked, problems, nil
		}
	}
}

func checkLedger(req *requests.MaintenanceRequest, entries []*requests.HistoryEntry) error {
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			return fmt.Errorf("entry %d has seq %d", i, e.Seq)
		}
	}
	if req.Version != len(entries) {
		return fmt.Errorf("version %d but %d ledger entries", req.Version, len(entries))
	}
	return requests.VerifyLedger(req.Status, entries)
}

// VerifyCmd returns the verify command.
func VerifyCmd() *cobra.Command {
	var sqlitePath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every request's status matches its history",
		Long: `Replays each request's status history and compares the result with the
stored status. Exits non-zero if any request disagrees.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(sqlitePath)
			if err != nil {
				return err
			}
			defer st.Close()

			checked, problems, err := VerifyLedgers(cmd.Context(), st.repos)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range problems {
				fmt.Fprintf(out, "✗ %s: %v\n", p.RequestID, p.Err)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d of %d requests have inconsistent history", len(problems), checked)
			}
			fmt.Fprintf(out, "✓ %d requests consistent\n", checked)
			return nil
		},
	}
	addSQLiteFlag(cmd, &sqlitePath)
	return cmd
}
