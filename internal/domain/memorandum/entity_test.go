package memorandum

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_UnmarshalBareID(t *testing.T) {
	var ref Ref[EmployeeSummary]
	require.NoError(t, json.Unmarshal([]byte(`"emp-1"`), &ref))

	assert.Equal(t, "emp-1", ref.ID())
	_, ok := ref.Value()
	assert.False(t, ok)
}

func TestRef_UnmarshalExpanded(t *testing.T) {
	payload := `{"id":"emp-1","full_name":"Rosa Quispe","area":{"id":"a-1","name":"Ventas"},"cargo":"c-9"}`

	var ref Ref[EmployeeSummary]
	require.NoError(t, json.Unmarshal([]byte(payload), &ref))

	assert.Equal(t, "emp-1", ref.ID())
	emp, ok := ref.Value()
	require.True(t, ok)
	assert.Equal(t, "Rosa Quispe", emp.FullName)
	assert.Equal(t, "a-1", emp.Area.ID())
	area, ok := emp.Area.Value()
	require.True(t, ok)
	assert.Equal(t, "Ventas", area.Name)
	assert.Equal(t, "c-9", emp.Cargo.ID())
	_, ok = emp.Cargo.Value()
	assert.False(t, ok)
}

func TestRef_UnmarshalNull(t *testing.T) {
	var ref Ref[Area]
	require.NoError(t, json.Unmarshal([]byte(`null`), &ref))
	assert.True(t, ref.IsZero())
}

func TestRef_Marshal(t *testing.T) {
	b, err := json.Marshal(RefID[Area]("a-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `"a-1"`, string(b))

	b, err = json.Marshal(Expanded(Area{ID: "a-1", Name: "Ventas"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a-1","name":"Ventas"}`, string(b))
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("EN_REVISIÓN")
	require.NoError(t, err)
	assert.Equal(t, StatusInReview, st)

	st, err = ParseStatus(" pendiente ")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st)

	_, err = ParseStatus("ARCHIVADO")
	assert.Error(t, err)
}

func TestStatus_UnmarshalAccented(t *testing.T) {
	var st Status
	require.NoError(t, json.Unmarshal([]byte(`"EN_REVISIÓN"`), &st))
	assert.Equal(t, StatusInReview, st)
}

func TestMemorandumResponse_DerivedFields(t *testing.T) {
	p := newTestPolicy()
	m := pendingMemo(EndOfDay(testNow.AddDate(0, 0, 2), lima))
	m.IncidentDate = time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)

	resp := NewMemorandumResponse(m, p, testNow)
	assert.Equal(t, StatusPending, resp.Status)
	assert.True(t, resp.CanBeSubsaned)
	require.NotNil(t, resp.DaysRemaining)
	assert.Equal(t, 2, *resp.DaysRemaining)
	assert.Equal(t, SeverityUrgent, resp.Warning.Severity)

	expired := NewMemorandumResponse(m, p, m.SubsanationDeadline.Add(time.Second))
	assert.Equal(t, StatusExpired, expired.Status)
	assert.False(t, expired.CanBeSubsaned)
	assert.Nil(t, expired.DaysRemaining)
}

func TestMemorandumResponse_ToMemorandum(t *testing.T) {
	p := newTestPolicy()
	m := pendingMemo(time.Date(2025, 3, 12, 23, 59, 59, 0, time.UTC))
	m.IncidentDate = time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	m.Status = StatusRejected
	m.ReviewComments = strPtr("Justificación insuficiente")
	reviewedAt := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	m.ReviewDate = &reviewedAt

	got, err := NewMemorandumResponse(m, p, testNow).ToMemorandum()
	require.NoError(t, err)

	assert.Equal(t, m.SubsanationDeadline.Unix(), got.SubsanationDeadline.Unix())
	assert.Equal(t, "2025-03-07", got.IncidentDate.Format(time.DateOnly))
	assert.Equal(t, StatusRejected, got.Status)
	require.NotNil(t, got.ReviewDate)
	assert.True(t, reviewedAt.Equal(*got.ReviewDate))
}
