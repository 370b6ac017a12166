package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	flushed  int
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	f.flushed++
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func sampleEvent() memorandum.TransitionEvent {
	from := memorandum.StatusPending
	return memorandum.TransitionEvent{
		ID:           "ev-1",
		MemorandumID: "m-1",
		CompanyID:    "co.1",
		EmployeeID:   "emp-1",
		Code:         "MEM-2025-000001",
		Event:        memorandum.EventSubmitJustification,
		FromStatus:   &from,
		ToStatus:     memorandum.StatusSubsaned,
		OccurredAt:   time.Date(2025, 3, 9, 17, 0, 0, 0, time.UTC),
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	c := &fakeConn{}
	p := newNATSPublisher(c, "hris.memorandum.")

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))

	require.Len(t, c.subjects, 1)
	assert.Equal(t, "hris.memorandum.co_1.submit_justification", c.subjects[0])
	assert.Equal(t, 1, c.flushed)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(c.payloads[0], &msg))
	assert.Equal(t, "m-1", msg["memorandum_id"])
	assert.Equal(t, "MEM-2025-000001", msg["memorandum_code"])
	assert.Equal(t, "PENDIENTE", msg["from_status"])
	assert.Equal(t, "SUBSANADO", msg["to_status"])

	require.NoError(t, p.Close())
	assert.True(t, c.drained)
}

func TestNATSPublisher_PublishError(t *testing.T) {
	c := &fakeConn{err: errors.New("connection closed")}
	p := newNATSPublisher(c, "hris.memorandum")

	err := p.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "connection closed")
	assert.Equal(t, 0, c.flushed)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.NoError(t, p.Close())
}
