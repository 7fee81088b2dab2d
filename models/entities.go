package models

import (
	"strconv"
	"strings"
	"time"
)

// Enquiry status values, in their usual order of progression
const (
	EnquiryStatusNew        = "New"
	EnquiryStatusInProgress = "In Progress"
	EnquiryStatusContacted  = "Contacted"
	EnquiryStatusConverted  = "Converted"
	EnquiryStatusClosed     = "Closed"
)

// Attendance status values
const (
	AttendancePresent = "Present"
	AttendanceAbsent  = "Absent"
)

// Student model as served by the institute API
type Student struct {
	ID          string    `json:"id,omitempty"`
	FirstName   string    `json:"firstName" validate:"required,notblank,max=100"`
	LastName    string    `json:"lastName" validate:"max=100"`
	Email       string    `json:"email" validate:"omitempty,email"`
	Phone       string    `json:"phone" validate:"omitempty,max=20"`
	Gender      string    `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	DateOfBirth *Date     `json:"dateOfBirth,omitempty"`
	Address     string    `json:"address,omitempty" validate:"max=500"`
	ParentName  string    `json:"parentName,omitempty" validate:"max=200"`
	ParentPhone string    `json:"parentPhone,omitempty" validate:"max=20"`
	CourseID    string    `json:"courseId,omitempty"`
	Status      string    `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// FullName joins first and last name
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Field implements listing.Record
func (s Student) Field(name string) string {
	switch name {
	case "id":
		return s.ID
	case "firstName":
		return s.FirstName
	case "lastName":
		return s.LastName
	case "name", "fullName":
		return s.FullName()
	case "email":
		return s.Email
	case "phone":
		return s.Phone
	case "gender":
		return s.Gender
	case "courseId":
		return s.CourseID
	case "status":
		return s.Status
	case "createdAt":
		return formatTime(s.CreatedAt)
	}
	return ""
}

// CreatedTime implements listing.Record
func (s Student) CreatedTime() time.Time { return s.CreatedAt }

// Course model as served by the institute API.
// FinalFee is the list price after the course-level discount.
type Course struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name" validate:"required,notblank,max=255"`
	Code        string    `json:"code,omitempty" validate:"max=100"`
	Description string    `json:"description,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Price       int64     `json:"price" validate:"gte=0"`
	Discount    int64     `json:"discount" validate:"gte=0"`
	FinalFee    int64     `json:"finalFee" validate:"gte=0"`
	Status      string    `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Field implements listing.Record
func (c Course) Field(name string) string {
	switch name {
	case "id":
		return c.ID
	case "name":
		return c.Name
	case "code":
		return c.Code
	case "duration":
		return c.Duration
	case "status":
		return c.Status
	case "price":
		return strconv.FormatInt(c.Price, 10)
	case "finalFee":
		return strconv.FormatInt(c.FinalFee, 10)
	case "createdAt":
		return formatTime(c.CreatedAt)
	}
	return ""
}

// CreatedTime implements listing.Record
func (c Course) CreatedTime() time.Time { return c.CreatedAt }

// Enquiry is a prospective student's contact request
type Enquiry struct {
	ID         string    `json:"id,omitempty"`
	Name       string    `json:"name" validate:"required,notblank,max=200"`
	Email      string    `json:"email" validate:"omitempty,email"`
	Phone      string    `json:"phone" validate:"omitempty,max=20"`
	CourseID   string    `json:"courseId,omitempty"`
	CourseName string    `json:"courseName,omitempty"`
	Message    string    `json:"message,omitempty"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// Field implements listing.Record
func (e Enquiry) Field(name string) string {
	switch name {
	case "id":
		return e.ID
	case "name":
		return e.Name
	case "email":
		return e.Email
	case "phone":
		return e.Phone
	case "courseId":
		return e.CourseID
	case "courseName":
		return e.CourseName
	case "message":
		return e.Message
	case "status":
		return e.Status
	case "createdAt":
		return formatTime(e.CreatedAt)
	}
	return ""
}

// CreatedTime implements listing.Record
func (e Enquiry) CreatedTime() time.Time { return e.CreatedAt }

// AttendanceRecord marks one student present or absent on a day
type AttendanceRecord struct {
	ID        string    `json:"id,omitempty"`
	StudentID string    `json:"studentId" validate:"required"`
	CourseID  string    `json:"courseId" validate:"required"`
	Date      Date      `json:"date"`
	Status    string    `json:"status" validate:"required,oneof=Present Absent"`
	Notes     string    `json:"notes,omitempty" validate:"max=500"`
	CreatedAt time.Time `json:"createdAt,omitempty"`

	Student *Student `json:"student,omitempty"`
}

// Field implements listing.Record
func (a AttendanceRecord) Field(name string) string {
	switch name {
	case "id":
		return a.ID
	case "studentId":
		return a.StudentID
	case "courseId":
		return a.CourseID
	case "status":
		return a.Status
	case "notes":
		return a.Notes
	case "date":
		return a.Date.String()
	case "studentName":
		if a.Student != nil {
			return a.Student.FullName()
		}
	case "createdAt":
		return formatTime(a.CreatedAt)
	}
	return ""
}

// CreatedTime implements listing.Record
func (a AttendanceRecord) CreatedTime() time.Time { return a.CreatedAt }

// Document is a file attached to a student profile
type Document struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Key         string    `json:"key,omitempty"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source"` // remote, memory
	UploadedAt  time.Time `json:"uploadedAt"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
