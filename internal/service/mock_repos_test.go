package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Mock VenueRepository ──

type mockVenueRepo struct {
	venues map[string]*model.Venue
	seq    int
}

func newMockVenueRepo() *mockVenueRepo {
	return &mockVenueRepo{venues: make(map[string]*model.Venue)}
}

func (m *mockVenueRepo) Create(_ context.Context, venue *model.Venue) error {
	if venue.VenueID == "" {
		m.seq++
		venue.VenueID = fmt.Sprintf("venue-%d", m.seq)
	}
	m.venues[venue.VenueID] = venue
	return nil
}

func (m *mockVenueRepo) GetByID(_ context.Context, id string) (*model.Venue, error) {
	if v, ok := m.venues[id]; ok {
		return v, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVenueRepo) GetByName(_ context.Context, name string) (*model.Venue, error) {
	for _, v := range m.venues {
		if v.Name == name {
			return v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVenueRepo) List(_ context.Context, onlyAvailable bool) ([]model.Venue, error) {
	var result []model.Venue
	for _, v := range m.venues {
		if onlyAvailable && !v.IsAvailable {
			continue
		}
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockVenueRepo) Update(_ context.Context, venue *model.Venue) error {
	m.venues[venue.VenueID] = venue
	return nil
}

func (m *mockVenueRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.venues, id)
	return nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct {
	classes map[string]*model.Class
	seq     int
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{classes: make(map[string]*model.Class)}
}

func (m *mockClassRepo) Create(_ context.Context, class *model.Class) error {
	if class.ClassID == "" {
		m.seq++
		class.ClassID = fmt.Sprintf("class-%d", m.seq)
	}
	m.classes[class.ClassID] = class
	return nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) GetByKey(_ context.Context, subject, department string, teacherID *string) (*model.Class, error) {
	for _, c := range m.classes {
		if c.Subject != subject || c.Department != department {
			continue
		}
		if (c.TeacherID == nil) != (teacherID == nil) {
			continue
		}
		if teacherID != nil && *c.TeacherID != *teacherID {
			continue
		}
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) ListByDepartment(_ context.Context, department string) ([]model.Class, error) {
	var result []model.Class
	for _, c := range m.classes {
		if c.Department == department {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockClassRepo) Update(_ context.Context, class *model.Class) error {
	m.classes[class.ClassID] = class
	class.Version++
	return nil
}

// ── Mock ScheduleEntryRepository ──

type mockScheduleEntryRepo struct {
	entries map[string]*model.ScheduleEntry
	seq     int

	// assignVenueErr 非空时 AssignVenue 返回该错误一次（模拟排除约束竞争）
	assignVenueErr error
}

func newMockScheduleEntryRepo() *mockScheduleEntryRepo {
	return &mockScheduleEntryRepo{entries: make(map[string]*model.ScheduleEntry)}
}

func (m *mockScheduleEntryRepo) add(entry model.ScheduleEntry) *model.ScheduleEntry {
	if entry.EntryID == "" {
		m.seq++
		entry.EntryID = fmt.Sprintf("entry-%d", m.seq)
	}
	if entry.Version == 0 {
		entry.Version = 1
	}
	m.entries[entry.EntryID] = &entry
	return m.entries[entry.EntryID]
}

func (m *mockScheduleEntryRepo) ReplaceTermEntries(_ context.Context, department, term string, entries []model.ScheduleEntry) error {
	for id, e := range m.entries {
		if e.Department == department && e.Term == term {
			delete(m.entries, id)
		}
	}
	for i := range entries {
		m.add(entries[i])
	}
	return nil
}

func (m *mockScheduleEntryRepo) GetByID(_ context.Context, id string) (*model.ScheduleEntry, error) {
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleEntryRepo) List(_ context.Context, department, term string, week *int, teacherID string, offset, limit int) ([]model.ScheduleEntry, int64, error) {
	var result []model.ScheduleEntry
	for _, e := range m.entries {
		if e.Department != department {
			continue
		}
		if term != "" && e.Term != term {
			continue
		}
		if week != nil && (e.WeekNumber == nil || *e.WeekNumber != *week) {
			continue
		}
		if teacherID != "" {
			hit := (e.TeacherID != nil && *e.TeacherID == teacherID) ||
				(e.Sub.TeacherID != nil && *e.Sub.TeacherID == teacherID)
			if !hit {
				continue
			}
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EntryID < result[j].EntryID })
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockScheduleEntryRepo) ListByVenueSlot(_ context.Context, venueID, day, term string, week *int) ([]model.ScheduleEntry, error) {
	var result []model.ScheduleEntry
	for _, e := range m.entries {
		if e.VenueID == nil || *e.VenueID != venueID {
			continue
		}
		if e.DayOfWeek != day || e.Term != term {
			continue
		}
		if week != nil && (e.WeekNumber == nil || *e.WeekNumber != *week) {
			continue
		}
		result = append(result, *e)
	}
	return result, nil
}

func (m *mockScheduleEntryRepo) ListBySlot(_ context.Context, day, term string, week *int) ([]model.ScheduleEntry, error) {
	var result []model.ScheduleEntry
	for _, e := range m.entries {
		if e.VenueID == nil || e.DayOfWeek != day || e.Term != term {
			continue
		}
		if week != nil && (e.WeekNumber == nil || *e.WeekNumber != *week) {
			continue
		}
		result = append(result, *e)
	}
	return result, nil
}

func (m *mockScheduleEntryRepo) ListByTeacherDay(_ context.Context, teacherID, day string) ([]model.ScheduleEntry, error) {
	var result []model.ScheduleEntry
	for _, e := range m.entries {
		if e.DayOfWeek != day || e.Archived {
			continue
		}
		hit := (e.TeacherID != nil && *e.TeacherID == teacherID) ||
			(e.Sub.TeacherID != nil && *e.Sub.TeacherID == teacherID)
		if hit {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockScheduleEntryRepo) Update(_ context.Context, entry *model.ScheduleEntry) error {
	m.entries[entry.EntryID] = entry
	entry.Version++
	return nil
}

func (m *mockScheduleEntryRepo) AssignVenue(_ context.Context, entry *model.ScheduleEntry, venueID *string) error {
	if m.assignVenueErr != nil {
		err := m.assignVenueErr
		m.assignVenueErr = nil
		return err
	}
	stored, ok := m.entries[entry.EntryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.VenueID = venueID
	stored.Version++
	entry.VenueID = venueID
	entry.Version = stored.Version
	return nil
}

func (m *mockScheduleEntryRepo) UpdateReplacement(_ context.Context, entryID string, sub model.Replacement, updatedBy string) error {
	stored, ok := m.entries[entryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Sub = sub
	stored.UpdatedBy = &updatedBy
	return nil
}

func (m *mockScheduleEntryRepo) ArchivePast(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for _, e := range m.entries {
		if !e.Archived && e.EndDate != nil && e.EndDate.Before(before) {
			e.Archived = true
			n++
		}
	}
	return n, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records map[string]*model.Attendance
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*model.Attendance)}
}

func attendanceKey(classID, studentID string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", classID, studentID, date.Format("2006-01-02"))
}

func (m *mockAttendanceRepo) Upsert(_ context.Context, att *model.Attendance) error {
	key := attendanceKey(att.ClassID, att.StudentID, att.SessionDate)
	if existing, ok := m.records[key]; ok {
		existing.Status = att.Status
		existing.MarkedBy = att.MarkedBy
		return nil
	}
	if att.AttendanceID == "" {
		att.AttendanceID = "att-" + key
	}
	cp := *att
	m.records[key] = &cp
	return nil
}

func (m *mockAttendanceRepo) Get(_ context.Context, classID, studentID string, sessionDate time.Time) (*model.Attendance, error) {
	if a, ok := m.records[attendanceKey(classID, studentID, sessionDate)]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListByClassDate(_ context.Context, classID string, sessionDate time.Time) ([]model.Attendance, error) {
	var result []model.Attendance
	for _, a := range m.records {
		if a.ClassID == classID && a.SessionDate.Format("2006-01-02") == sessionDate.Format("2006-01-02") {
			result = append(result, *a)
		}
	}
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []model.Notification
	announcements []model.Announcement
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) BatchCreate(_ context.Context, notifications []model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, notifications...)
	return nil
}

func (m *mockNotificationRepo) CreateAnnouncement(_ context.Context, announcement *model.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announcements = append(m.announcements, *announcement)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	return result, int64(len(result)), nil
}

// ── Mock EventSink ──

type mockSink struct {
	mu     sync.Mutex
	events []Event
}

func (m *mockSink) Publish(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockSink) byType(eventType string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Event
	for _, e := range m.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// ── 测试夹具 ──

type testMocks struct {
	users        *mockUserRepo
	venues       *mockVenueRepo
	classes      *mockClassRepo
	entries      *mockScheduleEntryRepo
	attendances  *mockAttendanceRepo
	notification *mockNotificationRepo
	sink         *mockSink
}

func newTestRepo() (*repository.Repository, *testMocks) {
	m := &testMocks{
		users:        newMockUserRepo(),
		venues:       newMockVenueRepo(),
		classes:      newMockClassRepo(),
		entries:      newMockScheduleEntryRepo(),
		attendances:  newMockAttendanceRepo(),
		notification: newMockNotificationRepo(),
		sink:         &mockSink{},
	}
	repo := &repository.Repository{
		User:          m.users,
		Venue:         m.venues,
		Class:         m.classes,
		ScheduleEntry: m.entries,
		Attendance:    m.attendances,
		Notification:  m.notification,
	}
	return repo, m
}
