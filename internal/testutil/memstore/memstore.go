// Package memstore is an in-memory implementation of the repository
// interfaces for service and controller tests. It enforces the same unique,
// foreign-key and dose-bound constraints as the Postgres schema and rolls
// back every change made inside a failed transaction.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/repositories"
	"github.com/yigit/vaxportal/internal/db"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
)

type state struct {
	users    map[int64]models.User
	students map[int64]models.Student
	drives   map[int64]models.VaccinationDrive
	records  map[int64]models.VaccinationRecord
	logs     []models.ActivityLog
	nextID   int64
}

func (s *state) clone() *state {
	c := &state{
		users:    make(map[int64]models.User, len(s.users)),
		students: make(map[int64]models.Student, len(s.students)),
		drives:   make(map[int64]models.VaccinationDrive, len(s.drives)),
		records:  make(map[int64]models.VaccinationRecord, len(s.records)),
		logs:     append([]models.ActivityLog(nil), s.logs...),
		nextID:   s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.students {
		c.students[k] = v
	}
	for k, v := range s.drives {
		c.drives[k] = v
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	return c
}

// Store holds every table
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *state
	now  func() time.Time

	// Transactions counts committed and rolled back top-level transactions
	Commits, Rollbacks int
}

// New returns an empty store
func New() *Store {
	return &Store{
		data: &state{
			users:    map[int64]models.User{},
			students: map[int64]models.Student{},
			drives:   map[int64]models.VaccinationDrive{},
			records:  map[int64]models.VaccinationRecord{},
		},
		now: time.Now,
	}
}

type txKey struct{}

// WithTransaction serializes fn against other transactions and restores the
// previous state when fn fails or panics. Nested calls join the outer one.
func (s *Store) WithTransaction(ctx context.Context, fn db.TransactionFn) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.restore(snapshot)
			panic(r)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snapshot)
		return err
	}

	s.mu.Lock()
	s.Commits++
	s.mu.Unlock()
	return nil
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = snapshot
	s.Rollbacks++
}

func (s *Store) id() int64 {
	s.data.nextID++
	return s.data.nextID
}

// Users returns the user repository
func (s *Store) Users() repositories.IUserRepository { return &userRepo{s} }

// Students returns the student repository
func (s *Store) Students() repositories.IStudentRepository { return &studentRepo{s} }

// Drives returns the drive repository
func (s *Store) Drives() repositories.IDriveRepository { return &driveRepo{s} }

// Records returns the record repository
func (s *Store) Records() repositories.IRecordRepository { return &recordRepo{s} }

// Activity returns the activity repository
func (s *Store) Activity() repositories.IActivityRepository { return &activityRepo{s} }

// Reports returns the report repository
func (s *Store) Reports() repositories.IReportRepository { return &reportRepo{s} }

// Drive returns a copy of a stored drive, for assertions
func (s *Store) Drive(id int64) (models.VaccinationDrive, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data.drives[id]
	return d, ok
}

// ActivityLogs returns a copy of the audit trail in insertion order
func (s *Store) ActivityLogs() []models.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActivityLog(nil), s.data.logs...)
}

// RecordCount returns the number of stored vaccination records
func (s *Store) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.records)
}

// PutDrive stores d as-is, bypassing service rules, and returns its ID
func (s *Store) PutDrive(d models.VaccinationDrive) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		d.ID = s.id()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	s.data.drives[d.ID] = d
	return d.ID
}

// PutStudent stores st as-is and returns its ID
func (s *Store) PutStudent(st models.Student) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == 0 {
		st.ID = s.id()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = s.now()
	}
	s.data.students[st.ID] = st
	return st.ID
}

func page[T any](items []T, p, size int) []T {
	start, end := helpers.CalculateSliceIndices(p, size, len(items))
	return items[start:end]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.users {
		if existing.Username == u.Username {
			return apperrors.ErrUsernameTaken
		}
	}
	u.ID = r.s.id()
	u.CreatedAt, u.UpdatedAt = r.s.now(), r.s.now()
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

type studentRepo struct{ s *Store }

func (r *studentRepo) idTaken(studentID string, except int64) bool {
	for id, st := range r.s.data.students {
		if id != except && st.StudentID == studentID {
			return true
		}
	}
	return false
}

func (r *studentRepo) Create(_ context.Context, st *models.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.idTaken(st.StudentID, 0) {
		return apperrors.ErrStudentIDAlreadyExists
	}
	st.ID = r.s.id()
	st.CreatedAt = r.s.now()
	r.s.data.students[st.ID] = *st
	return nil
}

func (r *studentRepo) GetByID(_ context.Context, id int64) (*models.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.data.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return &st, nil
}

func (r *studentRepo) Update(_ context.Context, st *models.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.data.students[st.ID]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	if r.idTaken(st.StudentID, st.ID) {
		return apperrors.ErrStudentIDAlreadyExists
	}
	updated := *st
	updated.CreatedAt = existing.CreatedAt
	r.s.data.students[st.ID] = updated
	return nil
}

func (r *studentRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.students[id]; !ok {
		return apperrors.ErrStudentNotFound
	}
	for _, rec := range r.s.data.records {
		if rec.StudentID == id {
			return apperrors.ErrStudentHasRecords
		}
	}
	delete(r.s.data.students, id)
	return nil
}

func (r *studentRepo) StudentIDExists(_ context.Context, studentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.idTaken(studentID, 0), nil
}

func (r *studentRepo) vaccinated(id int64) bool {
	for _, rec := range r.s.data.records {
		if rec.StudentID == id {
			return true
		}
	}
	return false
}

func (r *studentRepo) List(_ context.Context, f models.StudentFilter) ([]*models.Student, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*models.Student
	for _, st := range r.s.data.students {
		st := st
		if f.Search != "" && !containsFold(st.FirstName, f.Search) && !containsFold(st.LastName, f.Search) &&
			!containsFold(helpers.StringValue(st.Email), f.Search) && !containsFold(st.StudentID, f.Search) {
			continue
		}
		if !models.IsAllFilter(f.Grade) && st.Grade != f.Grade {
			continue
		}
		switch f.VaccinationStatus {
		case models.VaccinationStatusVaccinated:
			if !r.vaccinated(st.ID) {
				continue
			}
		case models.VaccinationStatusNotVaccinated:
			if r.vaccinated(st.ID) {
				continue
			}
		}
		matched = append(matched, &st)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})

	return page(matched, f.Page, f.Limit), int64(len(matched)), nil
}

type driveRepo struct{ s *Store }

func (r *driveRepo) Create(_ context.Context, d *models.VaccinationDrive) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.drives {
		if existing.DriveID == d.DriveID {
			return apperrors.ErrDriveIDAlreadyExists
		}
	}
	if d.AvailableDoses < 1 || d.UsedDoses < 0 || d.UsedDoses > d.AvailableDoses {
		return apperrors.NewValidationError("dose bounds violated")
	}
	d.ID = r.s.id()
	d.CreatedAt = r.s.now()
	r.s.data.drives[d.ID] = *d
	return nil
}

func (r *driveRepo) GetByID(_ context.Context, id int64) (*models.VaccinationDrive, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.drives[id]
	if !ok {
		return nil, apperrors.ErrDriveNotFound
	}
	return &d, nil
}

// GetByIDForUpdate needs no row lock; transactions are already serialized
func (r *driveRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.VaccinationDrive, error) {
	return r.GetByID(ctx, id)
}

func (r *driveRepo) Update(_ context.Context, d *models.VaccinationDrive) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.data.drives[d.ID]
	if !ok {
		return apperrors.ErrDriveNotFound
	}
	if d.AvailableDoses < existing.UsedDoses || d.AvailableDoses < 1 {
		return apperrors.NewValidationError("Available doses cannot be less than used doses")
	}
	existing.VaccineName = d.VaccineName
	existing.DriveDate = d.DriveDate
	existing.ApplicableGrades = d.ApplicableGrades
	existing.AvailableDoses = d.AvailableDoses
	existing.Status = d.Status
	existing.Notes = d.Notes
	r.s.data.drives[d.ID] = existing
	return nil
}

func (r *driveRepo) UpdateStatus(_ context.Context, id int64, status models.DriveStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.drives[id]
	if !ok {
		return apperrors.ErrDriveNotFound
	}
	d.Status = status
	r.s.data.drives[id] = d
	return nil
}

func (r *driveRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.drives[id]; !ok {
		return apperrors.ErrDriveNotFound
	}
	for _, rec := range r.s.data.records {
		if rec.DriveID == id {
			return apperrors.ErrDriveHasRecords
		}
	}
	delete(r.s.data.drives, id)
	return nil
}

func (r *driveRepo) List(_ context.Context, f models.DriveFilter) ([]*models.VaccinationDrive, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*models.VaccinationDrive
	for _, d := range r.s.data.drives {
		d := d
		if f.Search != "" && !containsFold(d.VaccineName, f.Search) {
			continue
		}
		if f.Status != "" && d.SettledStatus(f.Today) != f.Status {
			continue
		}
		if f.StartDate != nil && d.DriveDate.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && d.DriveDate.After(*f.EndDate) {
			continue
		}
		matched = append(matched, &d)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].DriveDate.Equal(matched[j].DriveDate) {
			return matched[i].DriveDate.After(matched[j].DriveDate)
		}
		return matched[i].ID > matched[j].ID
	})

	return page(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func (r *driveRepo) ListUpcoming(_ context.Context, from, to time.Time, limit int) ([]*models.VaccinationDrive, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*models.VaccinationDrive
	for _, d := range r.s.data.drives {
		d := d
		if d.Status == models.DriveStatusScheduled && !d.DriveDate.Before(from) && !d.DriveDate.After(to) {
			matched = append(matched, &d)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].DriveDate.Equal(matched[j].DriveDate) {
			return matched[i].DriveDate.Before(matched[j].DriveDate)
		}
		return matched[i].ID < matched[j].ID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *driveRepo) CompletePast(_ context.Context, today time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, d := range r.s.data.drives {
		if d.Settle(today) {
			r.s.data.drives[id] = d
			n++
		}
	}
	return n, nil
}

func (r *driveRepo) DriveIDExists(_ context.Context, driveID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.data.drives {
		if d.DriveID == driveID {
			return true, nil
		}
	}
	return false, nil
}

func (r *driveRepo) IncrementUsedDoses(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.drives[id]
	if !ok || d.UsedDoses >= d.AvailableDoses {
		return false, nil
	}
	d.UsedDoses++
	r.s.data.drives[id] = d
	return true, nil
}

func (r *driveRepo) DecrementUsedDoses(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.drives[id]
	if !ok || d.UsedDoses <= 0 {
		return false, nil
	}
	d.UsedDoses--
	r.s.data.drives[id] = d
	return true, nil
}

type recordRepo struct{ s *Store }

func (r *recordRepo) Create(_ context.Context, rec *models.VaccinationRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.students[rec.StudentID]; !ok {
		return apperrors.NewResourceNotFoundError("Student or vaccination drive not found")
	}
	if _, ok := r.s.data.drives[rec.DriveID]; !ok {
		return apperrors.NewResourceNotFoundError("Student or vaccination drive not found")
	}
	for _, existing := range r.s.data.records {
		if existing.StudentID == rec.StudentID && existing.DriveID == rec.DriveID {
			return apperrors.ErrAlreadyVaccinated
		}
	}
	rec.ID = r.s.id()
	rec.CreatedAt = r.s.now()
	r.s.data.records[rec.ID] = *rec
	return nil
}

func (r *recordRepo) GetByID(_ context.Context, id int64) (*models.VaccinationRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.data.records[id]
	if !ok {
		return nil, apperrors.ErrRecordNotFound
	}
	return &rec, nil
}

func (r *recordRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.records[id]; !ok {
		return apperrors.ErrRecordNotFound
	}
	delete(r.s.data.records, id)
	return nil
}

func (r *recordRepo) List(_ context.Context, f models.RecordFilter) ([]*models.VaccinationRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := []*models.VaccinationRecord{}
	for _, rec := range r.s.data.records {
		rec := rec
		if f.StudentID != nil && rec.StudentID != *f.StudentID {
			continue
		}
		if f.DriveID != nil && rec.DriveID != *f.DriveID {
			continue
		}
		matched = append(matched, &rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].VaccinationDate.Equal(matched[j].VaccinationDate) {
			return matched[i].VaccinationDate.After(matched[j].VaccinationDate)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched, nil
}

func (r *recordRepo) exists(match func(models.VaccinationRecord) bool) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.data.records {
		if match(rec) {
			return true
		}
	}
	return false
}

func (r *recordRepo) ExistsForStudent(_ context.Context, studentID int64) (bool, error) {
	return r.exists(func(rec models.VaccinationRecord) bool { return rec.StudentID == studentID }), nil
}

func (r *recordRepo) ExistsForDrive(_ context.Context, driveID int64) (bool, error) {
	return r.exists(func(rec models.VaccinationRecord) bool { return rec.DriveID == driveID }), nil
}

func (r *recordRepo) ExistsForPair(_ context.Context, studentID, driveID int64) (bool, error) {
	return r.exists(func(rec models.VaccinationRecord) bool {
		return rec.StudentID == studentID && rec.DriveID == driveID
	}), nil
}

type activityRepo struct{ s *Store }

func (r *activityRepo) Create(_ context.Context, l *models.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.id()
	l.Timestamp = r.s.now()
	r.s.data.logs = append(r.s.data.logs, *l)
	return nil
}

func (r *activityRepo) ListRecent(_ context.Context, limit int) ([]*models.ActivityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*models.ActivityLog{}
	for i := len(r.s.data.logs) - 1; i >= 0 && len(out) < limit; i-- {
		l := r.s.data.logs[i]
		out = append(out, &l)
	}
	return out, nil
}

type reportRepo struct{ s *Store }

// latest returns the most recent record of a student and its drive
func (r *reportRepo) latest(studentID int64) (*models.VaccinationRecord, *models.VaccinationDrive) {
	var best *models.VaccinationRecord
	for _, rec := range r.s.data.records {
		rec := rec
		if rec.StudentID != studentID {
			continue
		}
		if best == nil || rec.VaccinationDate.After(best.VaccinationDate) ||
			(rec.VaccinationDate.Equal(best.VaccinationDate) && rec.ID > best.ID) {
			best = &rec
		}
	}
	if best == nil {
		return nil, nil
	}
	d := r.s.data.drives[best.DriveID]
	return best, &d
}

func (r *reportRepo) DashboardStats(_ context.Context, today time.Time) (*models.DashboardStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := &models.DashboardStats{TotalStudents: int64(len(r.s.data.students))}
	vaccinated := map[int64]bool{}
	for _, rec := range r.s.data.records {
		vaccinated[rec.StudentID] = true
	}
	stats.Vaccinated = int64(len(vaccinated))
	for _, d := range r.s.data.drives {
		if d.Status == models.DriveStatusScheduled && !d.DriveDate.Before(today) {
			stats.UpcomingDrives++
		}
	}
	stats.Pending = stats.TotalStudents - stats.Vaccinated
	return stats, nil
}

func (r *reportRepo) GradeProgress(_ context.Context) ([]models.GradeProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	byGrade := map[string]*models.GradeProgress{}
	for _, st := range r.s.data.students {
		p, ok := byGrade[st.Grade]
		if !ok {
			p = &models.GradeProgress{Grade: st.Grade}
			byGrade[st.Grade] = p
		}
		p.Total++
		if rec, _ := r.latest(st.ID); rec != nil {
			p.Vaccinated++
		}
	}

	out := []models.GradeProgress{}
	for _, p := range byGrade {
		p.Percentage = repositories.Percentage(p.Vaccinated, p.Total)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Grade < out[j].Grade })
	return out, nil
}

func (r *reportRepo) VaccinationReport(_ context.Context, f models.ReportFilter) ([]*models.ReportRow, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []*models.ReportRow
	for _, st := range r.s.data.students {
		row := &models.ReportRow{
			StudentDBID: st.ID,
			StudentID:   st.StudentID,
			Name:        st.FullName(),
			Grade:       st.Grade,
		}
		if rec, d := r.latest(st.ID); rec != nil {
			date := rec.VaccinationDate
			name := d.VaccineName
			row.Vaccinated = true
			row.VaccinationDate = &date
			row.VaccineName = &name
		}

		if f.Name != "" && !containsFold(row.Name, f.Name) {
			continue
		}
		if !models.IsAllFilter(f.Grade) && row.Grade != f.Grade {
			continue
		}
		if !models.IsAllFilter(f.Vaccine) && (row.VaccineName == nil || !strings.EqualFold(*row.VaccineName, f.Vaccine)) {
			continue
		}
		if f.Status == models.VaccinationStatusVaccinated && !row.Vaccinated {
			continue
		}
		if f.Status == models.VaccinationStatusNotVaccinated && row.Vaccinated {
			continue
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Grade != rows[j].Grade {
			return rows[i].Grade < rows[j].Grade
		}
		return rows[i].StudentDBID < rows[j].StudentDBID
	})

	total := int64(len(rows))
	if f.Limit > 0 {
		rows = page(rows, f.Page, f.Limit)
	}
	return rows, total, nil
}
