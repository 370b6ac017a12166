package main

import (
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/workflow/selfservice"
	"github.com/spf13/cobra"
)

func listCmd(a *app) *cobra.Command {
	var status, typ, employeeID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your memoranda, or one employee's",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flow := selfservice.NewFlow(a.store, a.policy, selfservice.ForEmployee(employeeID))
			err := flow.SetFilter(cmd.Context(), memorandum.EmployeeFilter{
				Status: optional(status),
				Type:   optional(typ),
			})
			if err != nil {
				return err
			}
			return a.printList(flow.Memoranda())
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&typ, "type", "", "Filter by anomaly type")
	cmd.Flags().StringVar(&employeeID, "employee", "", "List this employee's memoranda instead of your own")
	return cmd
}

func justifyCmd(a *app) *cobra.Command {
	var text string
	var attachments []string

	cmd := &cobra.Command{
		Use:   "justify <memorandum-id>",
		Short: "Submit your justification for a pending memorandum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := parseAttachments(attachments)
			if err != nil {
				return err
			}

			flow := selfservice.NewFlow(a.store, a.policy)
			if err := flow.Load(cmd.Context()); err != nil {
				return err
			}
			sel, err := flow.Select(args[0])
			if err != nil {
				return err
			}
			if sel.Mode == selfservice.ModeReadOnly {
				a.printf("Already justified: %s\n", deref(sel.Memorandum.EmployeeJustification))
				if sel.Memorandum.ReviewComments != nil {
					a.printf("Review comments: %s\n", *sel.Memorandum.ReviewComments)
				}
			}

			if err := flow.SetDraft(text); err != nil {
				return err
			}
			updated, err := flow.Submit(cmd.Context(), files)
			if err != nil {
				return err
			}
			return a.printMemorandum(updated, nil)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Justification text")
	cmd.Flags().StringArrayVar(&attachments, "attach", nil, "Attachment as name=url (repeatable)")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func parseAttachments(raw []string) ([]memorandum.FileRef, error) {
	files := make([]memorandum.FileRef, 0, len(raw))
	for _, r := range raw {
		name, url, ok := strings.Cut(r, "=")
		if !ok || url == "" {
			return nil, fmt.Errorf("invalid attachment %q, want name=url", r)
		}
		files = append(files, memorandum.FileRef{Name: name, URL: url})
	}
	return files, nil
}
