package main

import (
	"context"
	"errors"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/workflow/review"
	"github.com/spf13/cobra"
)

func adminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Review memoranda across employees",
	}
	cmd.AddCommand(
		adminListCmd(a),
		adminReviewCmd(a),
		adminJustifyCmd(a),
		adminCloseCmd(a),
	)
	return cmd
}

func adminListCmd(a *app) *cobra.Command {
	var area, cargo, employee, status, typ, from, to string
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memoranda with status counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flow := review.NewFlow(a.store, a.policy, review.RequireDateRange(a.memo.AdminRequiresDateRange && !all))
			err := flow.UpdateFilter(cmd.Context(), func(f *memorandum.AdminFilter) {
				f.AreaID = optional(area)
				f.CargoID = optional(cargo)
				f.EmployeeID = optional(employee)
				f.Status = optional(status)
				f.Type = optional(typ)
				f.StartDate = optional(from)
				f.EndDate = optional(to)
			})
			if errors.Is(err, memorandum.ErrDateRangeRequired) {
				return errors.New("select a date range with --from and --to, or pass --all")
			}
			if err != nil {
				return err
			}
			return a.printAdminList(flow.Memoranda(), flow.Counts())
		},
	}

	cmd.Flags().StringVar(&area, "area", "", "Filter by area id")
	cmd.Flags().StringVar(&cargo, "cargo", "", "Filter by cargo id")
	cmd.Flags().StringVar(&employee, "employee", "", "Filter by employee id")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&typ, "type", "", "Filter by anomaly type")
	cmd.Flags().StringVar(&from, "from", "", "Incident date from (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Incident date to (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&all, "all", false, "Do not require a date range")
	return cmd
}

// focus loads a review flow holding only the memorandum with the given id,
// by narrowing the list to its employee and incident day.
func (a *app) focus(ctx context.Context, id string) (*review.Flow, error) {
	m, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	day := m.IncidentDate.Format(time.DateOnly)
	employeeID := m.EmployeeID()
	flow := review.NewFlow(a.store, a.policy)
	err = flow.UpdateFilter(ctx, func(f *memorandum.AdminFilter) {
		f.EmployeeID = &employeeID
		f.StartDate = &day
		f.EndDate = &day
	})
	if err != nil {
		return nil, err
	}
	return flow, nil
}

func adminReviewCmd(a *app) *cobra.Command {
	var approve, reject, affectsRecord bool
	var comment string

	cmd := &cobra.Command{
		Use:   "review <memorandum-id>",
		Short: "Approve or reject a justified memorandum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := review.ActionApprove
			if reject {
				action = review.ActionReject
			}

			flow, err := a.focus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := flow.OpenReview(args[0], action); err != nil {
				return err
			}
			if err := flow.SetComment(comment); err != nil {
				return err
			}
			if err := flow.SetAffectsRecord(affectsRecord); err != nil {
				return err
			}
			if !flow.CanConfirm() {
				return errors.New("a comment is required to reject, use --comment")
			}
			updated, err := flow.Confirm(cmd.Context())
			if err != nil {
				return err
			}
			return a.printMemorandum(updated, nil)
		},
	}

	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the justification")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject the justification")
	cmd.Flags().StringVar(&comment, "comment", "", "Review comment (required to reject)")
	cmd.Flags().BoolVar(&affectsRecord, "affects-record", false, "Mark the decision as affecting the employee record")
	cmd.MarkFlagsMutuallyExclusive("approve", "reject")
	cmd.MarkFlagsOneRequired("approve", "reject")
	return cmd
}

func adminJustifyCmd(a *app) *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "justify <memorandum-id>",
		Short: "Justify a pending memorandum on the employee's behalf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := a.focus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			updated, err := flow.JustifyOnBehalf(cmd.Context(), args[0], memorandum.JustifyOnBehalfRequest{Justification: text})
			if err != nil {
				return err
			}
			return a.printMemorandum(updated, nil)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Justification text")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func adminCloseCmd(a *app) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "close <memorandum-id>",
		Short: "Close a memorandum without employee input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := a.focus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			updated, err := flow.Close(cmd.Context(), args[0], comment)
			if err != nil {
				return err
			}
			return a.printMemorandum(updated, nil)
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "Reason for closing")
	return cmd
}
