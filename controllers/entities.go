package controllers

import "eduadmin_go/services"

var (
	StudentResource = Resource{
		Path:         "/students",
		Label:        "Student",
		ItemKey:      "student",
		Envelope:     services.StudentEnvelope,
		SearchFields: []string{"name", "email", "phone"},
		StatusField:  "status",
		Passthrough:  []string{"courseId"},
	}

	CourseResource = Resource{
		Path:         "/courses",
		Label:        "Course",
		ItemKey:      "course",
		Envelope:     services.CourseEnvelope,
		SearchFields: []string{"name", "code"},
		StatusField:  "status",
	}

	EnquiryResource = Resource{
		Path:         "/enquiries",
		Label:        "Enquiry",
		ItemKey:      "enquiry",
		Envelope:     services.EnquiryEnvelope,
		SearchFields: []string{"name", "email", "phone", "courseName"},
		StatusField:  "status",
		Passthrough:  []string{"courseId"},
	}

	AttendanceResource = Resource{
		Path:         "/attendance",
		Label:        "Attendance",
		ItemKey:      "attendance",
		Envelope:     services.AttendanceEnvelope,
		SearchFields: []string{"studentName", "notes"},
		StatusField:  "status",
		Passthrough:  []string{"courseId", "studentId", "date"},
	}

	FeeAssignmentResource = Resource{
		Path:         "/fee-assignments",
		Label:        "Fee assignment",
		ItemKey:      "feeAssignment",
		Envelope:     services.FeeAssignmentEnvelope,
		SearchFields: []string{"studentName", "courseName", "paymentReference"},
		StatusField:  "status",
		Passthrough:  []string{"studentId", "courseId", "paymentMethod"},
	}
)
