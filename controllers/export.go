package controllers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eduadmin_go/apiclient"
	"eduadmin_go/models"
	"eduadmin_go/services/listing"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Column is one exported spreadsheet column.
type Column struct {
	Header string
	Field  string
}

type exportSpec struct {
	sheet   string
	columns []Column
	query   func(c *fiber.Ctx) listing.Query
	fetch   func(ctx context.Context, api *apiclient.Client, q listing.Query) ([]listing.Record, error)
}

func exportOf[T listing.Record](rc *ResourceController[T], sheet string, columns []Column) exportSpec {
	return exportSpec{
		sheet:   sheet,
		columns: columns,
		query:   rc.ListQuery,
		fetch: func(ctx context.Context, api *apiclient.Client, q listing.Query) ([]listing.Record, error) {
			items, err := rc.All(ctx, api, q)
			if err != nil {
				return nil, err
			}
			out := make([]listing.Record, len(items))
			for i := range items {
				out[i] = items[i]
			}
			return out, nil
		},
	}
}

// ExportController writes list screens to xlsx.
type ExportController struct {
	api   *apiclient.Client
	specs map[string]exportSpec
}

func NewExportController(api *apiclient.Client, pageSize int) *ExportController {
	if pageSize < 100 {
		pageSize = 100
	}
	return &ExportController{
		api: api,
		specs: map[string]exportSpec{
			"students": exportOf(NewResourceController[models.Student](api, StudentResource, pageSize), "Students", []Column{
				{"ID", "id"}, {"First Name", "firstName"}, {"Last Name", "lastName"}, {"Email", "email"},
				{"Phone", "phone"}, {"Gender", "gender"}, {"Status", "status"}, {"Created At", "createdAt"},
			}),
			"courses": exportOf(NewResourceController[models.Course](api, CourseResource, pageSize), "Courses", []Column{
				{"ID", "id"}, {"Name", "name"}, {"Code", "code"}, {"Duration", "duration"},
				{"Price", "price"}, {"Final Fee", "finalFee"}, {"Status", "status"},
			}),
			"enquiries": exportOf(NewResourceController[models.Enquiry](api, EnquiryResource, pageSize), "Enquiries", []Column{
				{"ID", "id"}, {"Name", "name"}, {"Email", "email"}, {"Phone", "phone"},
				{"Course", "courseName"}, {"Status", "status"}, {"Message", "message"}, {"Created At", "createdAt"},
			}),
			"fee-assignments": exportOf(NewResourceController[models.FeeAssignment](api, FeeAssignmentResource, pageSize), "Fees", []Column{
				{"Reference", "paymentReference"}, {"Student", "studentName"}, {"Course", "courseName"},
				{"Actual Fee", "actualFee"}, {"Discount", "additionalDiscount"}, {"Total Fee", "totalFee"},
				{"Paid", "paidAmount"}, {"Pending", "pendingAmount"}, {"Status", "status"},
				{"Method", "paymentMethod"}, {"Created At", "createdAt"},
			}),
			"attendance": exportOf(NewResourceController[models.AttendanceRecord](api, AttendanceResource, pageSize), "Attendance", []Column{
				{"Date", "date"}, {"Student ID", "studentId"}, {"Student", "studentName"},
				{"Course ID", "courseId"}, {"Status", "status"}, {"Notes", "notes"},
			}),
		},
	}
}

// Export handles GET /api/export/:resource.xlsx. List filters (search,
// status, sort and passthrough parameters) apply to the export too.
func (ec *ExportController) Export(c *fiber.Ctx) error {
	name := strings.TrimSuffix(c.Params("resource"), ".xlsx")
	spec, ok := ec.specs[name]
	if !ok {
		return respondError(c, &utils.NotFoundError{Resource: "export", ID: name})
	}

	records, err := spec.fetch(c.UserContext(), apiFor(c, ec.api), spec.query(c))
	if err != nil {
		return respondError(c, err)
	}

	data, err := BuildWorkbook(spec.sheet, spec.columns, records)
	if err != nil {
		return respondError(c, err)
	}

	fileName := fmt.Sprintf("%s_%s.xlsx", name, time.Now().Format("20060102_150405"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return c.Send(data)
}

// BuildWorkbook writes a single unformatted sheet: a header row, then one
// row per record.
func BuildWorkbook(sheet string, columns []Column, records []listing.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheet)

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col.Header
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for r, rec := range records {
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			row[i] = rec.Field(col.Field)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
