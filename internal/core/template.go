package core

import (
	"bytes"
	"encoding/csv"
)

// TemplateHeader is the header line of the downloadable import template.
// course_code and batch_name are informational; the commit target is chosen
// when committing.
var TemplateHeader = []string{
	FieldName, FieldFatherName, FieldEmail, FieldPhone, FieldAadhaar,
	FieldDOB, FieldGender, FieldEducation, FieldAddress,
	FieldCourseCode, FieldBatchName,
}

var templateExample = []string{
	"John Doe", "Robert Doe", "john@example.com", "9876543210", "123456789012",
	"1995-05-15", "Male", "Graduation", "123 Main Street, Bhubaneswar",
	"CSE101", "Batch A",
}

// TemplateFileName is the suggested download name of the template.
const TemplateFileName = "student_import_template.csv"

// DownloadTemplate returns the import template: the header line plus one
// example row.
func DownloadTemplate() string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_ = w.Write(TemplateHeader)
	_ = w.Write(templateExample)
	w.Flush()
	return buf.String()
}
