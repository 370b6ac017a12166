package memorandum

import (
	"context"
	"time"
)

// Document is a printable rendering of a memorandum.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type MemorandumService interface {
	ListForEmployee(ctx context.Context, employeeID string, filter EmployeeFilter) (ListMemorandumResponse, error)
	ListForAdmin(ctx context.Context, filter AdminFilter) (ListMemorandumResponse, error)
	GetByID(ctx context.Context, id string) (MemorandumResponse, error)
	History(ctx context.Context, id string) ([]EventResponse, error)

	SubmitJustification(ctx context.Context, id string, req SubmitJustificationRequest) (MemorandumResponse, error)
	SubmitReview(ctx context.Context, id string, req SubmitReviewRequest) (MemorandumResponse, error)
	JustifyOnBehalf(ctx context.Context, id string, req JustifyOnBehalfRequest) (MemorandumResponse, error)
	Close(ctx context.Context, id string, req CloseRequest) (MemorandumResponse, error)

	GenerateDocument(ctx context.Context, id string) (Document, error)

	// Background jobs
	ExpireOverdue(ctx context.Context) (int, error)
	GenerateFromAttendance(ctx context.Context, since time.Time) (int, error)
}
