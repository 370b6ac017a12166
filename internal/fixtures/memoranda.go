package fixtures

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
)

// ==========================================
// HELPER FUNCTIONS
// ==========================================

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// ==========================================
// DEFAULT REFERENCE DATA
// ==========================================

const DemoCompanyID = "company-demo"

// GetDefaultAreas returns the areas of the demo company
func GetDefaultAreas() []memorandum.Area {
	return []memorandum.Area{
		{ID: "area-ops", Name: "Operaciones"},
		{ID: "area-sales", Name: "Ventas"},
		{ID: "area-hr", Name: "Recursos Humanos"},
	}
}

// GetDefaultCargos returns the job titles of the demo company
func GetDefaultCargos() []memorandum.Cargo {
	return []memorandum.Cargo{
		{ID: "cargo-analyst", Name: "Analista"},
		{ID: "cargo-supervisor", Name: "Supervisor"},
		{ID: "cargo-seller", Name: "Vendedor"},
	}
}

// GetDefaultEmployees returns one employee per area, fully expanded.
func GetDefaultEmployees() []memorandum.EmployeeSummary {
	areas := GetDefaultAreas()
	cargos := GetDefaultCargos()
	return []memorandum.EmployeeSummary{
		{
			ID:           "emp-ana",
			FullName:     "Ana Quispe",
			EmployeeCode: "E-001",
			Area:         memorandum.Expanded(areas[0]),
			Cargo:        memorandum.Expanded(cargos[0]),
		},
		{
			ID:           "emp-luis",
			FullName:     "Luis Huamán",
			EmployeeCode: "E-002",
			Area:         memorandum.Expanded(areas[1]),
			Cargo:        memorandum.Expanded(cargos[2]),
		},
		{
			ID:           "emp-rosa",
			FullName:     "Rosa Condori",
			EmployeeCode: "E-003",
			Area:         memorandum.Expanded(areas[2]),
			Cargo:        memorandum.Expanded(cargos[1]),
		},
	}
}

// ==========================================
// MEMORANDA
// ==========================================

// NewMemorandum builds a late-arrival memorandum for employee. The deadline
// is the end of the incident day plus days, in loc.
func NewMemorandum(seq int, employee memorandum.EmployeeSummary, incident time.Time, days int, loc *time.Location, status memorandum.Status) memorandum.Memorandum {
	incident = incident.In(loc)
	created := time.Date(incident.Year(), incident.Month(), incident.Day(), 9, 0, 0, 0, loc)
	return memorandum.Memorandum{
		ID:                  fmt.Sprintf("memo-%03d", seq),
		Code:                fmt.Sprintf("MEM-%d-%06d", incident.Year(), seq),
		CompanyID:           DemoCompanyID,
		Type:                memorandum.TypeLateArrival,
		Employee:            memorandum.Expanded(employee),
		IncidentDate:        time.Date(incident.Year(), incident.Month(), incident.Day(), 0, 0, 0, 0, time.UTC),
		ExpectedTime:        strPtr("08:00"),
		ActualTime:          strPtr("08:25"),
		DelayMinutes:        intPtr(25),
		Description:         "Llegada tarde de 25 minutos",
		Status:              status,
		SubsanationDeadline: memorandum.EndOfDay(incident, loc).AddDate(0, 0, days),
		CreatedAt:           created,
		UpdatedAt:           created,
	}
}

// Justified returns m with an employee justification recorded at.
func Justified(m memorandum.Memorandum, text string, at time.Time) memorandum.Memorandum {
	m.EmployeeJustification = strPtr(text)
	m.JustifiedAt = &at
	if m.Status == memorandum.StatusPending {
		m.Status = memorandum.StatusSubsaned
	}
	return m
}
