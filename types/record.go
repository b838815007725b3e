package types

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the persisted and wire form of calendar dates.
const DateLayout = "2006-01-02"

// Department values as persisted in the records workbook.
const (
	DepartmentNone           = ""
	DepartmentAdministration = "Administración"
	DepartmentSales          = "Ventas"
	DepartmentProduction     = "Producción"
	DepartmentHR             = "RRHH"
	DepartmentAccounting     = "Contabilidad"
	DepartmentOther          = "Otros"
)

// Departments lists the selectable departments in display order.
var Departments = []string{
	DepartmentNone,
	DepartmentAdministration,
	DepartmentSales,
	DepartmentProduction,
	DepartmentHR,
	DepartmentAccounting,
	DepartmentOther,
}

// IsDepartment reports whether value is one of Departments.
func IsDepartment(value string) bool {
	for _, d := range Departments {
		if d == value {
			return true
		}
	}
	return false
}

// PersonnelRecord is one employee row of the records workbook.
type PersonnelRecord struct {
	// ID is assigned as max(existing ids)+1 at creation. Zero means the
	// row had no id.
	ID int `json:"id"`

	// RegisteredDate is the day the record was created. Never changes.
	RegisteredDate Date `json:"registered_date"`

	// Name is the employee's full name; the only required field.
	// Edit and delete operations match records by this value.
	Name string `json:"name"`

	// NationalID holds the CI or RUC number.
	NationalID string `json:"national_id"`

	// Position is the job title.
	Position string `json:"position"`

	// Department is normally one of Departments.
	Department string `json:"department"`

	Phone string `json:"phone"`
	Email string `json:"email"`

	// HireDate defaults to the creation day.
	HireDate Date `json:"hire_date"`

	Notes string `json:"notes"`

	// AttachmentPath is empty or the location of the sideloaded document.
	AttachmentPath string `json:"attachment_path"`

	// RegisteredBy is the username that created the record.
	RegisteredBy string `json:"registered_by"`
}

// Columns returns the string form of every column, in workbook order.
func (r PersonnelRecord) Columns() []string {
	id := ""
	if r.ID != 0 {
		id = strconv.Itoa(r.ID)
	}
	return []string{
		id,
		r.RegisteredDate.String(),
		r.Name,
		r.NationalID,
		r.Position,
		r.Department,
		r.Phone,
		r.Email,
		r.HireDate.String(),
		r.Notes,
		r.AttachmentPath,
		r.RegisteredBy,
	}
}

// Date is a calendar day without time of day or zone.
// The zero value renders as an empty string. A Date built by UnparsedDate
// carries text that could not be read as a day and renders it unchanged.
type Date struct {
	t    time.Time
	text string
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local calendar day.
func Today() Date {
	return NewDate(time.Now())
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// UnparsedDate keeps a cell value that is not a recognizable date, so that
// rewriting the workbook does not lose it.
func UnparsedDate(text string) Date {
	return Date{text: text}
}

// IsZero reports whether d holds neither a day nor unparsed text.
func (d Date) IsZero() bool {
	return d.t.IsZero() && d.text == ""
}

// IsUnparsed reports whether d only carries the text it was read from.
func (d Date) IsUnparsed() bool {
	return d.t.IsZero() && d.text != ""
}

func (d Date) Time() time.Time {
	return d.t
}

func (d Date) String() string {
	if d.t.IsZero() {
		return d.text
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts anything MarshalText produces, unparsed text included.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		parsed = UnparsedDate(string(text))
	}
	*d = parsed
	return nil
}
