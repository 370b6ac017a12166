package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/workflow/review"
)

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) responses(list []memorandum.Memorandum) []memorandum.MemorandumResponse {
	now := a.policy.Calculator().Now()
	out := make([]memorandum.MemorandumResponse, 0, len(list))
	for _, m := range list {
		out = append(out, memorandum.NewMemorandumResponse(m, a.policy, now))
	}
	return out
}

func (a *app) printList(list []memorandum.Memorandum) error {
	if a.jsonOutput {
		return a.printJSON(a.responses(list))
	}
	if len(list) == 0 {
		a.printf("No memoranda found.\n")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tTYPE\tSTATUS\tINCIDENT\tDEADLINE\tDAYS LEFT\tEMPLOYEE")
	for _, m := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID,
			m.Code,
			m.Type.Label(),
			m.Status,
			m.IncidentDate.Format("2006-01-02"),
			m.SubsanationDeadline.In(a.policy.Calculator().Location()).Format("2006-01-02 15:04"),
			a.daysLeft(m),
			employeeName(m),
		)
	}
	return w.Flush()
}

func (a *app) printAdminList(list []memorandum.Memorandum, counts review.Counts) error {
	if a.jsonOutput {
		return a.printJSON(struct {
			Counts    review.Counts                   `json:"counts"`
			Memoranda []memorandum.MemorandumResponse `json:"memoranda"`
		}{counts, a.responses(list)})
	}

	a.printf("Total %d | Pendientes %d | Subsanados %d | En revisión %d | Expirados %d | Aprobados %d | Rechazados %d | Cerrados %d\n\n",
		counts.Total, counts.Pendientes, counts.Subsanados, counts.EnRevision,
		counts.Expirados, counts.Aprobados, counts.Rechazados, counts.Cerrados)
	return a.printList(list)
}

func (a *app) printMemorandum(m memorandum.Memorandum, history []memorandum.TransitionEvent) error {
	if a.jsonOutput {
		resp := struct {
			memorandum.MemorandumResponse
			History []memorandum.EventResponse `json:"history,omitempty"`
		}{MemorandumResponse: memorandum.NewMemorandumResponse(m, a.policy, a.policy.Calculator().Now())}
		for _, e := range history {
			resp.History = append(resp.History, memorandum.NewEventResponse(e))
		}
		return a.printJSON(resp)
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", m.ID)
	fmt.Fprintf(w, "Code:\t%s\n", m.Code)
	fmt.Fprintf(w, "Employee:\t%s\n", employeeName(m))
	fmt.Fprintf(w, "Type:\t%s\n", m.Type.Label())
	fmt.Fprintf(w, "Status:\t%s\n", m.Status)
	fmt.Fprintf(w, "Incident:\t%s\n", m.IncidentDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Description:\t%s\n", m.Description)
	fmt.Fprintf(w, "Deadline:\t%s (%s)\n",
		m.SubsanationDeadline.In(a.policy.Calculator().Location()).Format("2006-01-02 15:04"), a.daysLeft(m))
	if m.HasJustification() {
		fmt.Fprintf(w, "Justification:\t%s\n", *m.EmployeeJustification)
	}
	for _, f := range m.Attachments {
		fmt.Fprintf(w, "Attachment:\t%s %s\n", f.Name, f.URL)
	}
	if m.ReviewComments != nil {
		fmt.Fprintf(w, "Review comments:\t%s\n", *m.ReviewComments)
	}
	if m.IsReviewed() {
		fmt.Fprintf(w, "Affects record:\t%t\n", m.AffectsRecord)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(history) == 0 {
		return nil
	}
	a.printf("\nHistory:\n")
	w = tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, e := range history {
		from := "-"
		if e.FromStatus != nil {
			from = string(*e.FromStatus)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s -> %s\t%s\n",
			e.OccurredAt.In(a.policy.Calculator().Location()).Format("2006-01-02 15:04"),
			e.Event, from, e.ToStatus, deref(e.Comment))
	}
	return w.Flush()
}

// daysLeft shows the remaining window for records still open to justification.
func (a *app) daysLeft(m memorandum.Memorandum) string {
	if !a.policy.CanBeSubsaned(m) {
		return "-"
	}
	return a.policy.Calculator().Warning(m.SubsanationDeadline).Message
}

func employeeName(m memorandum.Memorandum) string {
	if emp, ok := m.Employee.Value(); ok && emp.FullName != "" {
		return emp.FullName
	}
	return m.EmployeeID()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
