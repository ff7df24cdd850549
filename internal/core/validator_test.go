package core

import (
	"context"
	"fmt"
	"reflect"
	"testing"
)

func validFields() map[string]string {
	return map[string]string{
		FieldName:       "John Doe",
		FieldFatherName: "Robert Doe",
		FieldEmail:      "john@x.com",
		FieldPhone:      "9876543210",
		FieldAadhaar:    "123456789012",
		FieldDOB:        "1995-05-15",
		FieldGender:     "Male",
		FieldEducation:  "Graduation",
		FieldAddress:    "123 St",
	}
}

func rowWith(line int, overrides map[string]string) UploadRow {
	fields := validFields()
	for k, v := range overrides {
		fields[k] = v
	}
	return UploadRow{Number: line, Line: line, Fields: fields}
}

func TestValidator_FieldRules(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		want      []string
	}{
		{"valid row", nil, nil},
		{"values are trimmed", map[string]string{FieldPhone: " 9876543210 ", FieldGender: " Male"}, nil},
		{"short phone", map[string]string{FieldPhone: "98765"}, []string{msgInvalidPhone}},
		{"phone with letters", map[string]string{FieldPhone: "98765abcde"}, []string{msgInvalidPhone}},
		{"phone with non-ascii digits", map[string]string{FieldPhone: "٩٨٧٦٥٤٣٢١٠"}, []string{msgInvalidPhone}},
		{"aadhaar 11 digits", map[string]string{FieldAadhaar: "12345678901"}, []string{msgInvalidAadhaar}},
		{"bad email", map[string]string{FieldEmail: "not-an-email"}, []string{msgInvalidEmail}},
		{"dob wrong order", map[string]string{FieldDOB: "15-05-1995"}, []string{msgInvalidDOB}},
		{"dob slashes", map[string]string{FieldDOB: "1995/05/15"}, []string{msgInvalidDOB}},
		{"dob unpadded", map[string]string{FieldDOB: "1995-5-15"}, []string{msgInvalidDOB}},
		{"dob not a calendar date", map[string]string{FieldDOB: "1995-02-30"}, []string{msgInvalidDOB}},
		{"dob leap day", map[string]string{FieldDOB: "2000-02-29"}, nil},
		{"gender lowercase", map[string]string{FieldGender: "male"}, []string{msgInvalidGender}},
		{"gender unknown", map[string]string{FieldGender: "M"}, []string{msgInvalidGender}},
		{"missing name", map[string]string{FieldName: ""}, []string{"Name is required"}},
		{"blank father name", map[string]string{FieldFatherName: "   "}, []string{"Father name is required"}},
		{
			name:      "missing field skips its format rule",
			overrides: map[string]string{FieldPhone: ""},
			want:      []string{"Phone is required"},
		},
		{
			name: "every failure is collected in rule order",
			overrides: map[string]string{
				FieldAddress: "",
				FieldEmail:   "bad",
				FieldPhone:   "1",
				FieldAadhaar: "2",
				FieldDOB:     "yesterday",
				FieldGender:  "other",
			},
			want: []string{
				"Address is required",
				msgInvalidEmail,
				msgInvalidPhone,
				msgInvalidAadhaar,
				msgInvalidDOB,
				msgInvalidGender,
			},
		},
	}

	v := NewValidator(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdicts, err := v.Validate(context.Background(), []UploadRow{rowWith(2, tt.overrides)}, newMemStore())
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if got := verdicts[0].Messages; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Messages = %q, want %q", got, tt.want)
			}
			if verdicts[0].Valid() != (len(tt.want) == 0) {
				t.Errorf("Valid() = %v, want %v", verdicts[0].Valid(), len(tt.want) == 0)
			}
		})
	}
}

func TestValidator_MissingColumnNamesField(t *testing.T) {
	row := rowWith(2, nil)
	delete(row.Fields, FieldEducation)

	verdicts, err := NewValidator(false).Validate(context.Background(), []UploadRow{row}, newMemStore())
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	want := []string{"Education is required"}
	if !reflect.DeepEqual(verdicts[0].Messages, want) {
		t.Errorf("Messages = %q, want %q", verdicts[0].Messages, want)
	}
}

func TestValidator_ExistingStudent(t *testing.T) {
	store := newMemStore()
	store.seed(NewStudent{Name: "Existing", Phone: "9876543210", NationalID: "999999999999"})

	rows := []UploadRow{
		rowWith(2, map[string]string{FieldEmail: "other@x.com", FieldAadhaar: "111111111111"}),
		rowWith(3, map[string]string{FieldPhone: "1111111111", FieldAadhaar: "222222222222", FieldEmail: "new@x.com"}),
	}

	verdicts, err := NewValidator(false).Validate(context.Background(), rows, store)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if want := []string{msgDuplicateStudent}; !reflect.DeepEqual(verdicts[0].Messages, want) {
		t.Errorf("row 2 Messages = %q, want %q", verdicts[0].Messages, want)
	}
	if !verdicts[1].Valid() {
		t.Errorf("row 3 Messages = %q, want valid", verdicts[1].Messages)
	}
	if store.findCalls != 2 {
		t.Errorf("FindDuplicate calls = %d, want 2", store.findCalls)
	}
}

func TestValidator_DeletedStudentDoesNotCollide(t *testing.T) {
	store := newMemStore()
	store.seed(NewStudent{Name: "Gone", Phone: "9876543210", Status: StudentDeleted})

	verdicts, err := NewValidator(false).Validate(context.Background(), []UploadRow{rowWith(2, nil)}, store)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !verdicts[0].Valid() {
		t.Errorf("Messages = %q, want valid", verdicts[0].Messages)
	}
}

func TestValidator_BatchedLookup(t *testing.T) {
	store := &batchStore{memStore: newMemStore()}
	store.seed(NewStudent{Name: "Existing", Phone: "9000000700"})

	const n = 1201
	rows := make([]UploadRow, n)
	for i := range rows {
		rows[i] = rowWith(i+2, map[string]string{
			FieldEmail:   fmt.Sprintf("s%d@x.com", i),
			FieldPhone:   fmt.Sprintf("9%09d", i),
			FieldAadhaar: fmt.Sprintf("%012d", i),
		})
	}

	verdicts, err := NewValidator(true).Validate(context.Background(), rows, store)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if store.batchCalls != 3 {
		t.Errorf("FindDuplicates calls = %d, want 3", store.batchCalls)
	}
	if want := []int{500, 500, 201}; !reflect.DeepEqual(store.batchSizes, want) {
		t.Errorf("batch sizes = %v, want %v", store.batchSizes, want)
	}
	if store.findCalls != 0 {
		t.Errorf("FindDuplicate calls = %d, want 0", store.findCalls)
	}
	for i, vd := range verdicts {
		wantValid := i != 700
		if vd.Valid() != wantValid {
			t.Errorf("row %d Valid() = %v, want %v (%q)", vd.RowNumber, vd.Valid(), wantValid, vd.Messages)
		}
	}
}

func TestValidator_IntraBatchDuplicates(t *testing.T) {
	rows := []UploadRow{
		rowWith(2, nil),
		rowWith(3, map[string]string{FieldEmail: "b@x.com", FieldPhone: "1111111111", FieldAadhaar: "111111111111"}),
		rowWith(4, map[string]string{FieldEmail: "c@x.com", FieldAadhaar: "222222222222"}),
		rowWith(5, map[string]string{FieldEmail: "B@X.COM", FieldPhone: "3333333333", FieldAadhaar: "333333333333"}),
	}

	t.Run("enabled", func(t *testing.T) {
		verdicts, err := NewValidator(true).Validate(context.Background(), rows, newMemStore())
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		want := [][]string{
			nil,
			nil,
			{"Duplicate email, phone, or Aadhaar in row 2"},
			{"Duplicate email, phone, or Aadhaar in row 3"},
		}
		for i := range rows {
			if !reflect.DeepEqual(verdicts[i].Messages, want[i]) {
				t.Errorf("row %d Messages = %q, want %q", rows[i].Number, verdicts[i].Messages, want[i])
			}
		}
	})

	t.Run("disabled", func(t *testing.T) {
		verdicts, err := NewValidator(false).Validate(context.Background(), rows, newMemStore())
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		for _, vd := range verdicts {
			if !vd.Valid() {
				t.Errorf("row %d Messages = %q, want valid", vd.RowNumber, vd.Messages)
			}
		}
	})
}

func TestRowVerdict_Display(t *testing.T) {
	v := RowVerdict{RowNumber: 2, Messages: []string{msgInvalidPhone}}
	if got, want := v.Display(), "Row 2: Phone must be exactly 10 digits"; got != want {
		t.Errorf("Display() = %q, want %q", got, want)
	}

	v = RowVerdict{RowNumber: 7, Messages: []string{"Name is required", msgInvalidGender}}
	if got, want := v.Display(), "Row 7: Name is required, Gender must be Male, Female, or Other"; got != want {
		t.Errorf("Display() = %q, want %q", got, want)
	}
}

func TestMissingColumns(t *testing.T) {
	header := []string{"name", "email", "phone", "aadhaar", "dob", "gender", "address", "course_code"}
	want := []string{FieldFatherName, FieldEducation}
	if got := MissingColumns(header); !reflect.DeepEqual(got, want) {
		t.Errorf("MissingColumns() = %q, want %q", got, want)
	}
	if got := MissingColumns(TemplateHeader); got != nil {
		t.Errorf("MissingColumns(TemplateHeader) = %q, want none", got)
	}
}
