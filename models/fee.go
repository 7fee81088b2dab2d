package models

import (
	"strconv"
	"time"
)

// Fee status values
const (
	FeeStatusPaid    = "paid"
	FeeStatusPending = "pending"
)

// FeeAssignment is one append-only payment event for a (student, course) pair.
// ActualFee and AdditionalDiscount are fixed by the first event of the pair.
type FeeAssignment struct {
	ID                 string    `json:"id,omitempty"`
	StudentID          string    `json:"studentId" validate:"required"`
	CourseID           string    `json:"courseId" validate:"required"`
	ActualFee          int64     `json:"actualFee" validate:"gte=0"`
	AdditionalDiscount int64     `json:"additionalDiscount" validate:"gte=0"`
	TotalFee           int64     `json:"totalFee"`
	PaidAmount         int64     `json:"paidAmount" validate:"gte=0"`
	PendingAmount      int64     `json:"pendingAmount"`
	Status             string    `json:"status"`
	PaymentMethod      string    `json:"paymentMethod" validate:"required,payment_method"`
	PaymentReference   string    `json:"paymentReference"`
	CreatedAt          time.Time `json:"createdAt,omitempty"`

	// Populated by the API on list endpoints
	Student *Student `json:"student,omitempty"`
	Course  *Course  `json:"course,omitempty"`
}

// Field implements listing.Record
func (f FeeAssignment) Field(name string) string {
	switch name {
	case "id":
		return f.ID
	case "studentId":
		return f.StudentID
	case "courseId":
		return f.CourseID
	case "status":
		return f.Status
	case "paymentMethod":
		return f.PaymentMethod
	case "paymentReference":
		return f.PaymentReference
	case "actualFee":
		return strconv.FormatInt(f.ActualFee, 10)
	case "additionalDiscount":
		return strconv.FormatInt(f.AdditionalDiscount, 10)
	case "totalFee":
		return strconv.FormatInt(f.TotalFee, 10)
	case "paidAmount":
		return strconv.FormatInt(f.PaidAmount, 10)
	case "pendingAmount":
		return strconv.FormatInt(f.PendingAmount, 10)
	case "studentName":
		if f.Student != nil {
			return f.Student.FullName()
		}
	case "courseName":
		if f.Course != nil {
			return f.Course.Name
		}
	case "createdAt":
		return formatTime(f.CreatedAt)
	}
	return ""
}

// CreatedTime implements listing.Record
func (f FeeAssignment) CreatedTime() time.Time { return f.CreatedAt }
