package memorandum

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
)

var documentTemplate = template.Must(template.New("memorandum").Funcs(template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"date": func(t time.Time) string {
		return t.Format("02/01/2006")
	},
	"datetime": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("02/01/2006 15:04")
	},
	"yesno": func(b bool) string {
		if b {
			return "Sí"
		}
		return "No"
	},
}).Parse(`MEMORÁNDUM {{.M.Code}}
{{.Rule}}
Tipo:               {{.M.Type.Label}}
Estado:             {{.Status}}
Colaborador:        {{.EmployeeName}}{{with .EmployeeCode}} ({{.}}){{end}}
{{- with .Area}}
Área:               {{.}}{{end}}
{{- with .Cargo}}
Cargo:              {{.}}{{end}}
Fecha de incidencia: {{date .M.IncidentDate}}
{{- with .M.ExpectedTime}}
Hora esperada:      {{.}}{{end}}
{{- with .M.ActualTime}}
Hora registrada:    {{.}}{{end}}
{{- with .M.DelayMinutes}}
Minutos de tardanza: {{.}}{{end}}
{{- with .M.EarlyMinutes}}
Minutos de salida anticipada: {{.}}{{end}}

Descripción:
{{.M.Description}}

Plazo de subsanación: {{.Deadline}}
{{- if .M.EmployeeJustification}}

Justificación ({{datetime .M.JustifiedAt}}):
{{deref .M.EmployeeJustification}}
{{- range .M.Attachments}}
  - {{.Name}}: {{.URL}}{{end}}
{{- end}}
{{- if .M.ReviewDate}}

Revisión ({{datetime .M.ReviewDate}}) por {{deref .M.ReviewedBy}}:
{{with deref .M.ReviewComments}}{{.}}{{else}}Sin comentarios{{end}}
Afecta el legajo: {{yesno .M.AffectsRecord}}
{{- end}}
{{.Rule}}
`))

type documentData struct {
	M            memorandum.Memorandum
	Status       memorandum.Status
	EmployeeName string
	EmployeeCode string
	Area         string
	Cargo        string
	Deadline     string
	Rule         string
}

// GenerateDocument implements memorandum.MemorandumService. The output depends
// only on the stored record and its effective status, so repeated calls in
// the same state return identical bytes.
func (s *MemorandumServiceImpl) GenerateDocument(ctx context.Context, id string) (memorandum.Document, error) {
	_, m, err := s.getVisible(ctx, id)
	if err != nil {
		return memorandum.Document{}, err
	}

	content, err := renderDocument(m, s.policy.EffectiveStatusAt(m, s.now()), s.policy.Calculator().Location())
	if err != nil {
		return memorandum.Document{}, err
	}

	return memorandum.Document{
		Filename:    m.Code + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Content:     content,
	}, nil
}

func renderDocument(m memorandum.Memorandum, status memorandum.Status, loc *time.Location) ([]byte, error) {
	data := documentData{
		M:            m,
		Status:       status,
		EmployeeName: m.EmployeeID(),
		Deadline:     m.SubsanationDeadline.In(loc).Format("02/01/2006 15:04"),
		Rule:         strings.Repeat("=", 60),
	}
	if emp, ok := m.Employee.Value(); ok {
		data.EmployeeName = emp.FullName
		data.EmployeeCode = emp.EmployeeCode
		if a, ok := emp.Area.Value(); ok {
			data.Area = a.Name
		}
		if c, ok := emp.Cargo.Value(); ok {
			data.Cargo = c.Name
		}
	}
	if m.JustifiedAt != nil {
		t := m.JustifiedAt.In(loc)
		data.M.JustifiedAt = &t
	}
	if m.ReviewDate != nil {
		t := m.ReviewDate.In(loc)
		data.M.ReviewDate = &t
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render memorandum %s: %w", m.Code, err)
	}
	return buf.Bytes(), nil
}
