package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Row validation messages.
const (
	msgInvalidEmail     = "Invalid email format"
	msgInvalidPhone     = "Phone must be exactly 10 digits"
	msgInvalidAadhaar   = "Aadhaar must be exactly 12 digits"
	msgInvalidDOB       = "Date of birth must be a valid date in YYYY-MM-DD format"
	msgInvalidGender    = "Gender must be Male, Female, or Other"
	msgDuplicateStudent = "Student with this email, phone, or Aadhaar already exists"
	msgDuplicateInFile  = "Duplicate email, phone, or Aadhaar in row %d"
)

// DuplicateBatchSize is the number of keys sent per set-based duplicate lookup.
const DuplicateBatchSize = 500

// RequiredField is a column every import file must declare and every row
// must fill.
type RequiredField struct {
	Name  string
	Label string
}

// RequiredFields in presence-check order.
var RequiredFields = []RequiredField{
	{FieldName, "Name"},
	{FieldFatherName, "Father name"},
	{FieldEmail, "Email"},
	{FieldPhone, "Phone"},
	{FieldAadhaar, "Aadhaar"},
	{FieldDOB, "Date of birth"},
	{FieldGender, "Gender"},
	{FieldEducation, "Education"},
	{FieldAddress, "Address"},
}

var (
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
	aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)
	datePattern    = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
)

// DateLayout is the only accepted date of birth format.
const DateLayout = "2006-01-02"

// Validator checks upload rows. All rules run for every row and every
// failure is collected.
type Validator struct {
	validate   *validator.Validate
	intraBatch bool
}

// NewValidator creates a Validator. When intraBatch is set, a row repeating
// an email, phone or Aadhaar of an earlier row in the same file is invalid.
func NewValidator(intraBatch bool) *Validator {
	return &Validator{
		validate:   validator.New(),
		intraBatch: intraBatch,
	}
}

// MissingColumns returns the required header names absent from header.
func MissingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, f := range RequiredFields {
		if !present[f.Name] {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// Validate returns one verdict per row, index-aligned with rows.
// The error is non-nil only when the store lookup fails.
func (v *Validator) Validate(ctx context.Context, rows []UploadRow, store Store) ([]RowVerdict, error) {
	verdicts := make([]RowVerdict, len(rows))
	for i, row := range rows {
		verdicts[i] = RowVerdict{RowNumber: row.Number, Messages: v.checkFields(row)}
	}

	exists, err := findDuplicates(ctx, store, rows)
	if err != nil {
		return nil, fmt.Errorf("check existing students: %w", err)
	}
	for i := range rows {
		if exists[i] {
			verdicts[i].Messages = append(verdicts[i].Messages, msgDuplicateStudent)
		}
	}

	if v.intraBatch {
		seen := newSeenKeys()
		for i, row := range rows {
			if first := seen.check(duplicateKeyOf(row), row.Number); first > 0 {
				verdicts[i].Messages = append(verdicts[i].Messages, fmt.Sprintf(msgDuplicateInFile, first))
			}
		}
	}

	for _, vd := range verdicts {
		if vd.Valid() {
			rowsValidated.WithLabelValues("valid").Inc()
		} else {
			rowsValidated.WithLabelValues("invalid").Inc()
		}
	}
	return verdicts, nil
}

// checkFields runs the presence and format rules in order.
func (v *Validator) checkFields(row UploadRow) []string {
	var msgs []string

	for _, f := range RequiredFields {
		if row.Get(f.Name) == "" {
			msgs = append(msgs, f.Label+" is required")
		}
	}

	if email := row.Get(FieldEmail); email != "" && v.validate.Var(email, "email") != nil {
		msgs = append(msgs, msgInvalidEmail)
	}
	if phone := row.Get(FieldPhone); phone != "" && !phonePattern.MatchString(phone) {
		msgs = append(msgs, msgInvalidPhone)
	}
	if id := row.Get(FieldAadhaar); id != "" && !aadhaarPattern.MatchString(id) {
		msgs = append(msgs, msgInvalidAadhaar)
	}
	if dob := row.Get(FieldDOB); dob != "" && !validDate(dob) {
		msgs = append(msgs, msgInvalidDOB)
	}
	if g := row.Get(FieldGender); g != "" && !validGender(g) {
		msgs = append(msgs, msgInvalidGender)
	}

	return msgs
}

func validDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func validGender(s string) bool {
	switch Gender(s) {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// findDuplicates checks every row with an identity field against the store.
// Stores implementing BatchDuplicateFinder get one query per
// DuplicateBatchSize rows; others get one query per row.
func findDuplicates(ctx context.Context, store Store, rows []UploadRow) ([]bool, error) {
	exists := make([]bool, len(rows))

	var (
		keys []DuplicateKey
		idx  []int
	)
	for i, row := range rows {
		if key := duplicateKeyOf(row); !key.Empty() {
			keys = append(keys, key)
			idx = append(idx, i)
		}
	}
	if len(keys) == 0 {
		return exists, nil
	}

	if finder, ok := store.(BatchDuplicateFinder); ok {
		for start := 0; start < len(keys); start += DuplicateBatchSize {
			end := min(start+DuplicateBatchSize, len(keys))
			found, err := finder.FindDuplicates(ctx, keys[start:end])
			if err != nil {
				return nil, err
			}
			if len(found) != end-start {
				return nil, fmt.Errorf("duplicate lookup returned %d results for %d keys", len(found), end-start)
			}
			for j, dup := range found {
				exists[idx[start+j]] = dup
			}
		}
		return exists, nil
	}

	for j, key := range keys {
		dup, err := store.FindDuplicate(ctx, key)
		if err != nil {
			return nil, err
		}
		exists[idx[j]] = dup
	}
	return exists, nil
}

// seenKeys remembers the first row number of each identity value.
type seenKeys struct {
	email, phone, nationalID map[string]int
}

func newSeenKeys() *seenKeys {
	return &seenKeys{
		email:      make(map[string]int),
		phone:      make(map[string]int),
		nationalID: make(map[string]int),
	}
}

// check returns the earliest row sharing a value with key, or 0, and records
// key's values for later rows.
func (s *seenKeys) check(key DuplicateKey, line int) int {
	first := 0
	visit := func(m map[string]int, value string) {
		if value == "" {
			return
		}
		if n, ok := m[value]; ok {
			if first == 0 || n < first {
				first = n
			}
			return
		}
		m[value] = line
	}
	visit(s.email, strings.ToLower(key.Email))
	visit(s.phone, key.Phone)
	visit(s.nationalID, key.NationalID)
	return first
}
