package reference

import (
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
)

// EmployeeFilter narrows the employee picker used by the review filters.
type EmployeeFilter struct {
	AreaID  *string `json:"area_id,omitempty"`
	CargoID *string `json:"cargo_id,omitempty"`
}

// CacheKey is stable for equal filters.
func (f EmployeeFilter) CacheKey() string {
	key := "all"
	if f.AreaID != nil && *f.AreaID != "" {
		key = "area=" + *f.AreaID
	}
	if f.CargoID != nil && *f.CargoID != "" {
		key += ";cargo=" + *f.CargoID
	}
	return key
}

type AreaResponse = memorandum.Area

type CargoResponse = memorandum.Cargo

type EmployeeResponse struct {
	ID           string  `json:"id"`
	FullName     string  `json:"full_name"`
	EmployeeCode string  `json:"employee_code,omitempty"`
	AreaID       string  `json:"area_id,omitempty"`
	AreaName     *string `json:"area_name,omitempty"`
	CargoID      string  `json:"cargo_id,omitempty"`
	CargoName    *string `json:"cargo_name,omitempty"`
}

func NewEmployeeResponse(e memorandum.EmployeeSummary) EmployeeResponse {
	resp := EmployeeResponse{
		ID:           e.ID,
		FullName:     e.FullName,
		EmployeeCode: e.EmployeeCode,
		AreaID:       e.Area.ID(),
		CargoID:      e.Cargo.ID(),
	}
	if a, ok := e.Area.Value(); ok {
		resp.AreaName = &a.Name
	}
	if c, ok := e.Cargo.Value(); ok {
		resp.CargoName = &c.Name
	}
	return resp
}
