package store

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cicap/personnel/internal/sheet"
	"github.com/cicap/personnel/types"
	"github.com/xuri/excelize/v2"
)

// Records workbook columns, in persisted order.
const (
	ColumnID             = "ID"
	ColumnRegisteredDate = "Fecha de Registro"
	ColumnName           = "Nombre"
	ColumnNationalID     = "CI/RUC"
	ColumnPosition       = "Cargo"
	ColumnDepartment     = "Departamento"
	ColumnPhone          = "Teléfono"
	ColumnEmail          = "Correo"
	ColumnHireDate       = "Fecha de Ingreso"
	ColumnNotes          = "Observaciones"
	ColumnAttachment     = "Archivo"
	ColumnRegisteredBy   = "Registrado por"
)

// RecordHeader is the fixed schema of the records workbook.
var RecordHeader = []string{
	ColumnID,
	ColumnRegisteredDate,
	ColumnName,
	ColumnNationalID,
	ColumnPosition,
	ColumnDepartment,
	ColumnPhone,
	ColumnEmail,
	ColumnHireDate,
	ColumnNotes,
	ColumnAttachment,
	ColumnRegisteredBy,
}

// RecordRepository handles persistence for personnel records.
type RecordRepository struct {
	path string
}

func NewRecordRepository(path string) *RecordRepository {
	return &RecordRepository{path: path}
}

// Path returns the backing workbook location.
func (r *RecordRepository) Path() string {
	return r.path
}

// Load returns all records in file row order. A missing workbook yields an
// empty slice.
func (r *RecordRepository) Load(ctx context.Context) ([]types.PersonnelRecord, error) {
	exists, err := sheet.Exists(r.path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []types.PersonnelRecord{}, nil
	}

	table, err := sheet.Read(r.path)
	if err != nil {
		return nil, err
	}

	records := make([]types.PersonnelRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		record, err := decodeRecord(table, row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", r.path, i+2, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Save overwrites the workbook with records in slice order.
func (r *RecordRepository) Save(ctx context.Context, records []types.PersonnelRecord) error {
	rows := make([][]any, 0, len(records))
	for _, record := range records {
		rows = append(rows, encodeRecord(record))
	}
	return sheet.Write(r.path, RecordHeader, rows)
}

// Init writes an empty workbook when none exists.
func (r *RecordRepository) Init(ctx context.Context) (bool, error) {
	exists, err := sheet.Exists(r.path)
	if err != nil || exists {
		return false, err
	}
	return true, r.Save(ctx, nil)
}

func encodeRecord(record types.PersonnelRecord) []any {
	var id any = ""
	if record.ID != 0 {
		id = record.ID
	}
	return []any{
		id,
		record.RegisteredDate.String(),
		record.Name,
		record.NationalID,
		record.Position,
		record.Department,
		record.Phone,
		record.Email,
		record.HireDate.String(),
		record.Notes,
		record.AttachmentPath,
		record.RegisteredBy,
	}
}

func decodeRecord(table sheet.Table, row []string) (types.PersonnelRecord, error) {
	id, err := parseID(table.Value(row, ColumnID))
	if err != nil {
		return types.PersonnelRecord{}, fmt.Errorf("invalid %s: %w", ColumnID, err)
	}
	registered := decodeDate(table.Value(row, ColumnRegisteredDate))
	hired := decodeDate(table.Value(row, ColumnHireDate))

	return types.PersonnelRecord{
		ID:             id,
		RegisteredDate: registered,
		Name:           table.Value(row, ColumnName),
		NationalID:     table.Value(row, ColumnNationalID),
		Position:       table.Value(row, ColumnPosition),
		Department:     table.Value(row, ColumnDepartment),
		Phone:          table.Value(row, ColumnPhone),
		Email:          table.Value(row, ColumnEmail),
		HireDate:       hired,
		Notes:          table.Value(row, ColumnNotes),
		AttachmentPath: table.Value(row, ColumnAttachment),
		RegisteredBy:   table.Value(row, ColumnRegisteredBy),
	}, nil
}

// Text layouts accepted for date cells besides YYYY-MM-DD. Day-first order
// matches the locale the workbooks are edited in.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
}

// decodeDate reads a date cell written by this package, typed by hand, or
// stored by Excel as a serial number. Anything else is kept verbatim so a
// single odd cell does not make the workbook unreadable.
func decodeDate(value string) types.Date {
	if d, err := types.ParseDate(value); err == nil {
		return d
	}
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return types.NewDate(t)
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return types.NewDate(t)
		}
	}
	return types.UnparsedDate(value)
}

// parseID accepts integer cells and whole floats such as "3.0"; an empty
// cell is id 0.
func parseID(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if id, err := strconv.Atoi(value); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not a whole number: %s", value)
	}
	return int(f), nil
}
