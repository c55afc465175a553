package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/scheduling"
	pkgerrors "schedulix/backend/pkg/errors"
)

// ── export errors ──

var (
	ErrExportEmpty        = pkgerrors.New(pkgerrors.KindNotFound, 27001, "No appointments in the selected range")
	ErrExportGenerateFail = pkgerrors.New(pkgerrors.KindInternal, 27002, "Failed to generate the spreadsheet")
)

// ExportService appointment spreadsheets
//
// The workbook is returned as a buffer; the handler sets the download
// headers and writes it to the response.
type ExportService interface {
	ExportAppointments(ctx context.Context, actor Actor, req *dto.DateRangeRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService creates an ExportService.
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var exportColumns = []struct {
	title string
	width float64
}{
	{"Number", 24},
	{"Date", 12},
	{"Start", 8},
	{"End", 8},
	{"Minutes", 9},
	{"Doctor", 22},
	{"Specialization", 18},
	{"Patient Code", 18},
	{"Patient", 22},
	{"Type", 16},
	{"Consultation", 13},
	{"Priority", 10},
	{"Status", 12},
	{"Reason", 40},
}

// ExportAppointments one row per appointment, ordered by date and time.
// Admin only.
func (s *exportService) ExportAppointments(ctx context.Context, actor Actor, req *dto.DateRangeRequest) (*bytes.Buffer, string, error) {
	if !actor.IsAdmin() {
		return nil, "", ErrForbidden
	}

	filter := repository.AppointmentFilter{DoctorID: req.DoctorID}
	var err error
	if filter.DateFrom, filter.DateTo, err = parseRange(req.DateFrom, req.DateTo); err != nil {
		return nil, "", err
	}

	appts, err := s.repo.Appointment.ListAll(ctx, actor.TenantID, filter)
	if err != nil {
		s.logger.Error("failed to load appointments for export", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
		return nil, "", err
	}
	if len(appts) == 0 {
		return nil, "", ErrExportEmpty
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Appointments"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", ErrExportGenerateFail.Wrap(err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, c := range exportColumns {
		col := colName(i)
		f.SetColWidth(sheet, col, col, c.width)
		f.SetCellValue(sheet, cell(col, 1), c.title)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(exportColumns)-1), 1), headerStyle)
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i := range appts {
		row := i + 2
		values := exportRow(&appts[i])
		for j, v := range values {
			f.SetCellValue(sheet, cell(colName(j), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("failed to write workbook", zap.Error(err))
		return nil, "", ErrExportGenerateFail.Wrap(err)
	}

	return buf, exportFilename(req), nil
}

func exportRow(a *model.Appointment) []interface{} {
	start, end := a.AppointmentTime, ""
	if iv, err := a.Interval(); err == nil {
		start, end = iv.Start.String(), iv.End.String()
	}

	doctorName, specialization := "", ""
	if a.Doctor != nil {
		specialization = a.Doctor.Specialization
		if a.Doctor.User != nil {
			doctorName = a.Doctor.User.Name
		}
	}
	patientCode, patientName := "", ""
	if a.Patient != nil {
		patientCode, patientName = a.Patient.PatientCode, a.Patient.FullName
	}
	reason := ""
	if a.Reason != nil {
		reason = *a.Reason
	}

	return []interface{}{
		a.AppointmentNumber,
		a.AppointmentDate.Format(scheduling.DateLayout),
		start,
		end,
		a.DurationMinutes,
		doctorName,
		specialization,
		patientCode,
		patientName,
		a.AppointmentType,
		a.ConsultationType,
		a.Priority,
		a.Status,
		reason,
	}
}

func exportFilename(req *dto.DateRangeRequest) string {
	switch {
	case req.DateFrom != "" && req.DateTo != "":
		return fmt.Sprintf("appointments_%s_%s.xlsx", req.DateFrom, req.DateTo)
	case req.DateFrom != "":
		return fmt.Sprintf("appointments_from_%s.xlsx", req.DateFrom)
	case req.DateTo != "":
		return fmt.Sprintf("appointments_until_%s.xlsx", req.DateTo)
	}
	return "appointments.xlsx"
}

// ── helpers ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
