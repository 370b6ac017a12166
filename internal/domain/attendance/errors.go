package attendance

import "errors"

var (
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrInvalidWindow      = errors.New("anomaly window end must be after its start")
)
