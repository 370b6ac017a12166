package memorandum

import "context"

// Store is the boundary through which the workflows read and mutate
// memoranda. Implementations perform the network I/O; the backend behind
// them has the final word on every guard.
type Store interface {
	ListForEmployee(ctx context.Context, employeeID string, filter EmployeeFilter) ([]Memorandum, error)
	ListForAdmin(ctx context.Context, filter AdminFilter) ([]Memorandum, error)
	Get(ctx context.Context, id string) (Memorandum, error)
	History(ctx context.Context, id string) ([]TransitionEvent, error)

	SubmitEmployeeJustification(ctx context.Context, id string, req SubmitJustificationRequest) (Memorandum, error)
	SubmitAdminReview(ctx context.Context, id string, req SubmitReviewRequest) (Memorandum, error)
	JustifyOnBehalf(ctx context.Context, id string, req JustifyOnBehalfRequest) (Memorandum, error)
	Close(ctx context.Context, id string, req CloseRequest) (Memorandum, error)

	// GenerateDocument never mutates the memorandum.
	GenerateDocument(ctx context.Context, id string) ([]byte, error)
}
