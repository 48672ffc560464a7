package store

import (
	"context"
	"database/sql"
	"time"

	"staffing-grid/internal/db"
	"staffing-grid/internal/models"
)

// PostgresStore implements timesheet.Persistence plus the annotation and
// color reads/writes the grid needs. Callers distinguish "no rows" from
// failure via sql.ErrNoRows.
type PostgresStore struct {
	q  *db.Queries
	db *sql.DB
}

func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{q: db.New(conn), db: conn}
}

func (s *PostgresStore) ListEmployees(ctx context.Context, orgID string) ([]*models.Employee, error) {
	rows, err := s.q.ListEmployees(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Employee, 0, len(rows))
	for _, r := range rows {
		out = append(out, employeeFromRow(r))
	}
	return out, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, orgID string) ([]*models.Project, error) {
	rows, err := s.q.ListProjects(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Project, 0, len(rows))
	for _, r := range rows {
		out = append(out, &models.Project{
			ID: r.ID, OrgID: r.OrgID, ERPProjectRef: r.ERPProjectRef,
			Number: r.Number, Name: r.Name, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
		})
	}
	return out, nil
}

func (s *PostgresStore) EmployeeByID(ctx context.Context, id string) (*models.Employee, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, org_id, first_name, last_name, daily_hours, erp_employee_ref, status, created_at, updated_at FROM employees WHERE id = $1", id)
	var r db.Employee
	if err := row.Scan(&r.ID, &r.OrgID, &r.FirstName, &r.LastName, &r.DailyHours, &r.ERPEmployeeRef, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return employeeFromRow(r), nil
}

func (s *PostgresStore) ProjectByID(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, org_id, erp_project_ref, number, name, created_at, updated_at FROM projects WHERE id = $1", id)
	var r db.Project
	if err := row.Scan(&r.ID, &r.OrgID, &r.ERPProjectRef, &r.Number, &r.Name, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &models.Project{ID: r.ID, OrgID: r.OrgID, ERPProjectRef: r.ERPProjectRef, Number: r.Number, Name: r.Name, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}, nil
}

// AssignmentsInRange loads the window's assignments with their entries
// attached; entries are fetched in one query and merged in memory.
func (s *PostgresStore) AssignmentsInRange(ctx context.Context, orgID string, from, to time.Time) ([]*models.ShiftAssignment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, org_id, employee_id, project_id, date, created_at, updated_at FROM shift_assignments WHERE org_id = $1 AND date >= $2 AND date <= $3",
		orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ShiftAssignment
	byID := make(map[string]*models.ShiftAssignment)
	for rows.Next() {
		var r db.ShiftAssignment
		if err := rows.Scan(&r.ID, &r.OrgID, &r.EmployeeID, &r.ProjectID, &r.Date, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		a := assignmentFromRow(r)
		out = append(out, a)
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	erows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.assignment_id, e.hours, e.activity_ref, e.note, e.is_overtime, e.overtime_tier, e.status,
		        e.approved_by, e.approved_at, e.synced_at, e.erp_ref, e.sync_error, e.created_at, e.updated_at
		 FROM time_entries e
		 JOIN shift_assignments a ON a.id = e.assignment_id
		 WHERE a.org_id = $1 AND a.date >= $2 AND a.date <= $3`,
		orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer erows.Close()
	for erows.Next() {
		e, err := scanEntry(erows)
		if err != nil {
			return nil, err
		}
		if a, ok := byID[e.AssignmentID]; ok {
			a.Entries = append(a.Entries, e)
		}
	}
	return out, erows.Err()
}

func (s *PostgresStore) AssignmentByID(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, org_id, employee_id, project_id, date, created_at, updated_at FROM shift_assignments WHERE id = $1", id)
	var r db.ShiftAssignment
	if err := row.Scan(&r.ID, &r.OrgID, &r.EmployeeID, &r.ProjectID, &r.Date, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	a := assignmentFromRow(r)

	erows, err := s.db.QueryContext(ctx,
		`SELECT id, assignment_id, hours, activity_ref, note, is_overtime, overtime_tier, status,
		        approved_by, approved_at, synced_at, erp_ref, sync_error, created_at, updated_at
		 FROM time_entries WHERE assignment_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer erows.Close()
	for erows.Next() {
		e, err := scanEntry(erows)
		if err != nil {
			return nil, err
		}
		a.Entries = append(a.Entries, e)
	}
	return a, erows.Err()
}

func (s *PostgresStore) InsertAssignment(ctx context.Context, a *models.ShiftAssignment) error {
	var projectID sql.NullString
	if a.ProjectID != nil {
		projectID = sql.NullString{String: *a.ProjectID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO shift_assignments (id, org_id, employee_id, project_id, date) VALUES ($1, $2, $3, $4, $5)",
		a.ID, a.OrgID, a.EmployeeID, projectID, a.Date)
	return err
}

func (s *PostgresStore) DeleteAssignment(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM shift_assignments WHERE id = $1", id)
	return err
}

func (s *PostgresStore) EntryByID(ctx context.Context, id string) (*models.TimeEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, assignment_id, hours, activity_ref, note, is_overtime, overtime_tier, status,
		        approved_by, approved_at, synced_at, erp_ref, sync_error, created_at, updated_at
		 FROM time_entries WHERE id = $1`, id)
	return scanEntry(row)
}

func (s *PostgresStore) UpdateEntry(ctx context.Context, e *models.TimeEntry) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE time_entries SET hours = $2, note = $3, status = $4, approved_by = NULLIF($5, ''),
		        approved_at = $6, synced_at = $7, erp_ref = $8, sync_error = NULLIF($9, ''), updated_at = now()
		 WHERE id = $1`,
		e.ID, e.Hours, e.Note, e.Status.String(), e.ApprovedBy, e.ApprovedAt, e.SyncedAt, e.ERPRef, e.SyncError)
	return err
}

// ReplaceEntries swaps the assignment's entries in one transaction so a
// failed insert never leaves the old rows half deleted.
func (s *PostgresStore) ReplaceEntries(ctx context.Context, assignmentID string, rows []*models.TimeEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM time_entries WHERE assignment_id = $1", assignmentID); err != nil {
		return err
	}
	for _, e := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO time_entries (id, assignment_id, hours, activity_ref, note, is_overtime, overtime_tier, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.AssignmentID, e.Hours, e.ActivityRef, e.Note, e.IsOvertime, e.OvertimeTier.String(), e.Status.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ResetEntries(ctx context.Context, entryIDs []string) error {
	return s.q.ResetEntriesStatus(ctx, entryIDs, models.EntryDraft.String())
}

func (s *PostgresStore) ListFreeLines(ctx context.Context, orgID string, from, to time.Time) ([]*models.FreeLine, []*models.FreeBubble, error) {
	fy, fw := from.ISOWeek()
	ty, tw := to.ISOWeek()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, week, year, name, position, created_at FROM free_lines
		 WHERE org_id = $1 AND (year * 100 + week) >= $2 AND (year * 100 + week) <= $3
		 ORDER BY year, week, position`,
		orgID, fy*100+fw, ty*100+tw)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var lines []*models.FreeLine
	var lineIDs []string
	for rows.Next() {
		var l models.FreeLine
		if err := rows.Scan(&l.ID, &l.OrgID, &l.Week, &l.Year, &l.Name, &l.Position, &l.CreatedAt); err != nil {
			return nil, nil, err
		}
		lines = append(lines, &l)
		lineIDs = append(lineIDs, l.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(lineIDs) == 0 {
		return lines, nil, nil
	}

	brows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.line_id, b.date, b.text, b.color, b.created_at FROM free_bubbles b
		 JOIN free_lines l ON l.id = b.line_id
		 WHERE l.org_id = $1 AND b.date >= $2 AND b.date <= $3`,
		orgID, from, to)
	if err != nil {
		return nil, nil, err
	}
	defer brows.Close()
	var bubbles []*models.FreeBubble
	for brows.Next() {
		var b models.FreeBubble
		if err := brows.Scan(&b.ID, &b.LineID, &b.Date, &b.Text, &b.Color, &b.CreatedAt); err != nil {
			return nil, nil, err
		}
		bubbles = append(bubbles, &b)
	}
	return lines, bubbles, brows.Err()
}

func (s *PostgresStore) InsertFreeLine(ctx context.Context, l *models.FreeLine) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO free_lines (id, org_id, week, year, name, position) VALUES ($1, $2, $3, $4, $5, $6)",
		l.ID, l.OrgID, l.Week, l.Year, l.Name, l.Position)
	return err
}

func (s *PostgresStore) InsertFreeBubble(ctx context.Context, b *models.FreeBubble) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO free_bubbles (id, line_id, date, text, color) VALUES ($1, $2, $3, $4, $5)",
		b.ID, b.LineID, b.Date, b.Text, b.Color)
	return err
}

func (s *PostgresStore) DeleteFreeBubble(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM free_bubbles WHERE id = $1", id)
	return err
}

func (s *PostgresStore) ListProjectColors(ctx context.Context, orgID string) ([]models.ProjectColor, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT org_id, erp_project_ref, color FROM project_colors WHERE org_id = $1", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.ProjectColor
	for rows.Next() {
		var c models.ProjectColor
		if err := rows.Scan(&c.OrgID, &c.ERPProjectRef, &c.Color); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertProjectColor(ctx context.Context, c models.ProjectColor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO project_colors (org_id, erp_project_ref, color) VALUES ($1, $2, $3)
		 ON CONFLICT (org_id, erp_project_ref) DO UPDATE SET color = EXCLUDED.color`,
		c.OrgID, c.ERPProjectRef, c.Color)
	return err
}

func (s *PostgresStore) ListCalendarDays(ctx context.Context, from, to time.Time) (map[string]models.CalendarDay, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT date, is_weekend, is_holiday, COALESCE(name, '') FROM calendar_days WHERE date >= $1 AND date <= $2",
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]models.CalendarDay)
	for rows.Next() {
		var d models.CalendarDay
		if err := rows.Scan(&d.Date, &d.IsWeekend, &d.IsHoliday, &d.Name); err != nil {
			return nil, err
		}
		out[d.Date.Format("2006-01-02")] = d
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*models.TimeEntry, error) {
	var r db.TimeEntry
	if err := row.Scan(&r.ID, &r.AssignmentID, &r.Hours, &r.ActivityRef, &r.Note, &r.IsOvertime, &r.OvertimeTier, &r.Status,
		&r.ApprovedBy, &r.ApprovedAt, &r.SyncedAt, &r.ERPRef, &r.SyncError, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	e := &models.TimeEntry{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		Hours:        r.Hours,
		ActivityRef:  r.ActivityRef,
		Note:         r.Note,
		IsOvertime:   r.IsOvertime,
		OvertimeTier: models.ParseOvertimeTier(r.OvertimeTier),
		Status:       models.ParseEntryStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.ApprovedBy.Valid {
		e.ApprovedBy = r.ApprovedBy.String
	}
	if r.ApprovedAt.Valid {
		t := r.ApprovedAt.Time
		e.ApprovedAt = &t
	}
	if r.SyncedAt.Valid {
		t := r.SyncedAt.Time
		e.SyncedAt = &t
	}
	if r.ERPRef.Valid {
		ref := r.ERPRef.String
		e.ERPRef = &ref
	}
	if r.SyncError.Valid {
		e.SyncError = r.SyncError.String
	}
	return e, nil
}

func employeeFromRow(r db.Employee) *models.Employee {
	e := &models.Employee{
		ID: r.ID, OrgID: r.OrgID, FirstName: r.FirstName, LastName: r.LastName,
		DailyHours: r.DailyHours, Status: r.Status, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if r.ERPEmployeeRef.Valid {
		ref := r.ERPEmployeeRef.String
		e.ERPEmployeeRef = &ref
	}
	return e
}

func assignmentFromRow(r db.ShiftAssignment) *models.ShiftAssignment {
	a := &models.ShiftAssignment{
		ID: r.ID, OrgID: r.OrgID, EmployeeID: r.EmployeeID, Date: r.Date,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if r.ProjectID.Valid {
		pid := r.ProjectID.String
		a.ProjectID = &pid
	}
	return a
}
