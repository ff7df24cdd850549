package postgres

const findDuplicateSQL = `
SELECT EXISTS (
    SELECT 1 FROM students
    WHERE status <> 'deleted'
      AND (($1::text <> '' AND lower(email) = lower($1::text))
        OR ($2::text <> '' AND phone = $2::text)
        OR ($3::text <> '' AND national_id = $3::text))
)`

// findDuplicatesSQL checks many keys at once. Results carry the 1-based
// position of the key in the input arrays.
const findDuplicatesSQL = `
SELECT k.ord, EXISTS (
    SELECT 1 FROM students s
    WHERE s.status <> 'deleted'
      AND ((k.email <> '' AND lower(s.email) = lower(k.email))
        OR (k.phone <> '' AND s.phone = k.phone)
        OR (k.national_id <> '' AND s.national_id = k.national_id))
)
FROM unnest($1::text[], $2::text[], $3::text[]) WITH ORDINALITY AS k(email, phone, national_id, ord)`

const countCreatedInYearSQL = `
SELECT count(*) FROM students
WHERE status <> 'deleted'
  AND created_at >= make_date($1::int, 1, 1)
  AND created_at < make_date($1::int + 1, 1, 1)`

// Issued numbers stay reserved even after the student is deleted.
const existsEnrollmentNumberSQL = `
SELECT EXISTS (SELECT 1 FROM students WHERE enrollment_number = $1)`

const nextEnrollmentSequenceSQL = `
INSERT INTO enrollment_sequences (year, last_value)
VALUES ($1::int, (` + countCreatedInYearSQL + `) + 1)
ON CONFLICT (year) DO UPDATE SET last_value = enrollment_sequences.last_value + 1
RETURNING last_value`

const insertStudentSQL = `
INSERT INTO students (
    enrollment_number, name, father_name, email, phone, national_id,
    date_of_birth, gender, education, address,
    course_id, batch_id, training_center_id, credential_hash, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id`

const insertFeeEntrySQL = `
INSERT INTO fee_ledger (student_id, amount, fee_type, due_date, status)
VALUES ($1, $2, $3, $4, $5)`

const insertImportLogSQL = `
INSERT INTO import_logs (
    import_id, actor_id, file_name, total_rows, success_count, failure_count,
    target_course_id, target_batch_id, target_training_center_id, source_object
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`

const listImportLogsSQL = `
SELECT id, import_id, actor_id, file_name, total_rows, success_count, failure_count,
       target_course_id, target_batch_id, target_training_center_id, source_object, created_at
FROM import_logs
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`
