package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	"github.com/noah-isme/padel-waitlist-api/internal/repository"
	"github.com/noah-isme/padel-waitlist-api/pkg/claimtoken"
	"github.com/noah-isme/padel-waitlist-api/pkg/phone"
	"github.com/noah-isme/padel-waitlist-api/pkg/whatsapp"
)

const (
	testClubID    = "club-1"
	testClassID   = "class-1"
	testDate      = "2024-06-04"
	testChannel   = "120363000000000000@g.us"
	testBaseURL   = "https://padel.example.com"
	testSecret    = "test-waitlist-secret"
	otherClubID   = "club-2"
	inactiveID    = "student-inactive"
	foreignID     = "student-foreign"
	testStudentID = "student-1"
)

var testNow = time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC)

func testKey() models.OccurrenceKey {
	return models.OccurrenceKey{ClassID: testClassID, Date: testDate}
}

// clubStore is an in-memory stand-in for the Postgres schema. Claims follow
// the same conditional-increment semantics as ClaimRepository.
type clubStore struct {
	mu            sync.Mutex
	lockMu        sync.Mutex
	seq           int
	occurrences   map[string]models.ClassOccurrence
	students      map[string]models.Student
	clubs         map[string]models.Club
	participants  map[string]*models.Participant
	waitlist      map[string]*models.WaitlistEntry
	tokens        map[string]*models.EnrollmentToken
	notifications []models.NotificationRecord
}

func newClubStore(capacity int) *clubStore {
	channel := testChannel
	s := &clubStore{
		occurrences:  map[string]models.ClassOccurrence{},
		students:     map[string]models.Student{},
		clubs:        map[string]models.Club{testClubID: {ID: testClubID, Name: "Padel Norte", WhatsAppChannel: &channel}},
		participants: map[string]*models.Participant{},
		waitlist:     map[string]*models.WaitlistEntry{},
		tokens:       map[string]*models.EnrollmentToken{},
	}
	s.occurrences[testKey().String()] = models.ClassOccurrence{
		ClassID:         testClassID,
		Date:            testDate,
		ClubID:          testClubID,
		ClubName:        "Padel Norte",
		Name:            "Intermediate",
		Capacity:        capacity,
		StartTime:       "19:00",
		DurationMinutes: 90,
	}
	s.students[inactiveID] = models.Student{ID: inactiveID, ClubID: testClubID, FullName: "Inactive", Active: false}
	s.students[foreignID] = models.Student{ID: foreignID, ClubID: otherClubID, FullName: "Foreign", Active: true}
	return s
}

func (s *clubStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *clubStore) addStudents(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.students[id] = models.Student{ID: id, ClubID: testClubID, FullName: "Player " + id, Active: true}
	}
}

func (s *clubStore) seat(studentID string) *models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Participant{
		ID:             s.nextID("participant"),
		ClassID:        testClassID,
		OccurrenceDate: testKey().Day(),
		StudentID:      studentID,
		Status:         models.ParticipantStatusActive,
		CreatedAt:      testNow,
	}
	s.participants[p.ID] = p
	return p
}

func (s *clubStore) wait(studentID string, spots int, at time.Time) *models.WaitlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &models.WaitlistEntry{
		ID:             s.nextID("entry"),
		ClassID:        testClassID,
		OccurrenceDate: testKey().Day(),
		StudentID:      studentID,
		RequestedSpots: spots,
		Status:         models.WaitlistStatusWaiting,
		EnqueuedAt:     at,
	}
	s.waitlist[e.ID] = e
	return e
}

func (s *clubStore) occupying() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countOccupyingLocked(testClassID, testDate)
}

func (s *clubStore) countOccupyingLocked(classID, date string) int {
	count := 0
	for _, p := range s.participants {
		if p.ClassID == classID && p.OccurrenceDate.Format(models.DateLayout) == date && p.Occupying() {
			count++
		}
	}
	return count
}

func (s *clubStore) hasOpenLocked(classID, date, studentID string) bool {
	for _, p := range s.participants {
		if p.ClassID == classID && p.OccurrenceDate.Format(models.DateLayout) == date && p.StudentID == studentID && p.Status != models.ParticipantStatusCancelled {
			return true
		}
	}
	return false
}

func (s *clubStore) bySourceToken(token string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, p := range s.participants {
		if p.SourceToken != nil && *p.SourceToken == token {
			count++
		}
	}
	return count
}

func (s *clubStore) entryStatus(id string) models.WaitlistStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitlist[id].Status
}

func (s *clubStore) token(value string) models.EnrollmentToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tokens[value]
}

func (s *clubStore) tokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

type storeClasses struct{ *clubStore }

func (f storeClasses) FindOccurrence(ctx context.Context, key models.OccurrenceKey) (*models.ClassOccurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	occ, ok := f.occurrences[key.String()]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &occ, nil
}

type storeStudents struct{ *clubStore }

func (f storeStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

type storeClubs struct{ *clubStore }

func (f storeClubs) FindByID(ctx context.Context, id string) (*models.Club, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	club, ok := f.clubs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &club, nil
}

type storeParticipants struct{ *clubStore }

func (f storeParticipants) CountOccupying(ctx context.Context, key models.OccurrenceKey) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countOccupyingLocked(key.ClassID, key.Date), nil
}

func (f storeParticipants) FindByID(ctx context.Context, id string) (*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f storeParticipants) ExistsOpen(ctx context.Context, key models.OccurrenceKey, studentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasOpenLocked(key.ClassID, key.Date, studentID), nil
}

func (f storeParticipants) ListByOccurrence(ctx context.Context, key models.OccurrenceKey) ([]models.ParticipantDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ParticipantDetail
	for _, p := range f.participants {
		if p.Key() == key {
			out = append(out, models.ParticipantDetail{Participant: *p, StudentName: f.students[p.StudentID].FullName})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f storeParticipants) Enroll(ctx context.Context, participant *models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	date := participant.OccurrenceDate.Format(models.DateLayout)
	if f.hasOpenLocked(participant.ClassID, date, participant.StudentID) {
		return repository.ErrDuplicateParticipant
	}
	occ := f.occurrences[participant.Key().String()]
	if participant.Status == models.ParticipantStatusActive && f.countOccupyingLocked(participant.ClassID, date)+1 > occ.Capacity {
		return repository.ErrCapacityExceeded
	}
	participant.ID = f.nextID("participant")
	cp := *participant
	f.participants[cp.ID] = &cp
	return nil
}

func (f storeParticipants) Cancel(ctx context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok || p.Status == models.ParticipantStatusCancelled {
		return false, nil
	}
	p.Status = models.ParticipantStatusCancelled
	p.UpdatedAt = at
	return true, nil
}

func (f storeParticipants) ConfirmAbsence(ctx context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok || p.Status != models.ParticipantStatusActive || p.AbsenceConfirmed {
		return false, nil
	}
	p.AbsenceConfirmed = true
	p.UpdatedAt = at
	return true, nil
}

type storeWaitlist struct{ *clubStore }

func (f storeWaitlist) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.waitlist {
		if e.StudentID == entry.StudentID && e.ClassID == entry.ClassID && e.OccurrenceDate.Equal(entry.OccurrenceDate) && e.Status.Open() {
			return repository.ErrDuplicateWaitlistEntry
		}
	}
	entry.ID = f.nextID("entry")
	cp := *entry
	f.waitlist[cp.ID] = &cp
	return nil
}

func (f storeWaitlist) FindOpenByStudent(ctx context.Context, key models.OccurrenceKey, studentID string) (*models.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.waitlist {
		if e.StudentID == studentID && e.ClassID == key.ClassID && e.OccurrenceDate.Format(models.DateLayout) == key.Date && e.Status.Open() {
			cp := *e
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f storeWaitlist) ordered(key models.OccurrenceKey) []models.WaitlistEntry {
	var out []models.WaitlistEntry
	for _, e := range f.waitlist {
		if e.ClassID == key.ClassID && e.OccurrenceDate.Format(models.DateLayout) == key.Date {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnqueuedAt.Equal(out[j].EnqueuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}

func (f storeWaitlist) ListOpen(ctx context.Context, key models.OccurrenceKey) ([]models.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var open []models.WaitlistEntry
	for _, e := range f.ordered(key) {
		if e.Status.Open() {
			open = append(open, e)
		}
	}
	return open, nil
}

func (f storeWaitlist) ListByOccurrence(ctx context.Context, key models.OccurrenceKey) ([]models.WaitlistEntryDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WaitlistEntryDetail
	for _, e := range f.ordered(key) {
		out = append(out, models.WaitlistEntryDetail{WaitlistEntry: e, StudentName: f.students[e.StudentID].FullName})
	}
	return out, nil
}

func (f storeWaitlist) MarkNotified(ctx context.Context, ids []string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected int64
	for _, id := range ids {
		if e, ok := f.waitlist[id]; ok && e.Status == models.WaitlistStatusWaiting {
			e.Status = models.WaitlistStatusNotified
			stamp := at
			e.NotifiedAt = &stamp
			affected++
		}
	}
	return affected, nil
}

func (f storeWaitlist) ExpireBefore(ctx context.Context, day string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected int64
	for _, e := range f.waitlist {
		if e.Status.Open() && e.OccurrenceDate.Format(models.DateLayout) < day {
			e.Status = models.WaitlistStatusExpired
			affected++
		}
	}
	return affected, nil
}

type storeTokens struct{ *clubStore }

func (f storeTokens) Create(ctx context.Context, token *models.EnrollmentToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *token
	f.tokens[token.Token] = &cp
	return nil
}

func (f storeTokens) FindByToken(ctx context.Context, value string) (*models.EnrollmentToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[value]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f storeTokens) Expire(ctx context.Context, value string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[value]
	if !ok || !t.ExpiresAt.After(at) {
		return false, nil
	}
	t.ExpiresAt = at
	return true, nil
}

func (f storeTokens) SumOutstanding(ctx context.Context, key models.OccurrenceKey, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, t := range f.tokens {
		if t.Key() == key && t.ExpiresAt.After(now) {
			total += t.Remaining()
		}
	}
	return total, nil
}

type storeNotifications struct{ *clubStore }

func (f storeNotifications) Create(ctx context.Context, record *models.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record.ID = f.nextID("notification")
	f.notifications = append(f.notifications, *record)
	return nil
}

func (f storeNotifications) FindSent(ctx context.Context, token, channel string) (*models.NotificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.notifications {
		if r.Token == token && r.Channel == channel && r.Status == models.NotificationStatusSent {
			cp := r
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f storeNotifications) ListByToken(ctx context.Context, token string) ([]models.NotificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NotificationRecord
	for _, r := range f.notifications {
		if r.Token == token {
			out = append(out, r)
		}
	}
	return out, nil
}

type storeClaims struct{ *clubStore }

func (f storeClaims) Claim(ctx context.Context, params repository.ClaimParams) (*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[params.Token]
	if !ok || t.ConsumedCount >= t.AvailableSpots || !t.ExpiresAt.After(params.Now) {
		return nil, repository.ErrTokenUnavailable
	}
	key := t.Key()
	if f.hasOpenLocked(key.ClassID, key.Date, params.StudentID) {
		return nil, repository.ErrDuplicateParticipant
	}
	if f.countOccupyingLocked(key.ClassID, key.Date)+1 > f.occurrences[key.String()].Capacity {
		return nil, repository.ErrCapacityExceeded
	}
	t.ConsumedCount++
	source := t.Token
	p := &models.Participant{
		ID:             f.nextID("participant"),
		ClassID:        key.ClassID,
		OccurrenceDate: t.OccurrenceDate,
		StudentID:      params.StudentID,
		Status:         models.ParticipantStatusActive,
		IsSubstitute:   true,
		SourceToken:    &source,
		CreatedAt:      params.Now,
	}
	f.participants[p.ID] = p
	for _, e := range f.waitlist {
		if e.StudentID == params.StudentID && e.Key() == key && e.Status.Open() {
			e.Status = models.WaitlistStatusClaimed
			at := params.Now
			e.ClaimedAt = &at
		}
	}
	cp := *p
	return &cp, nil
}

type recordingSender struct {
	mu       sync.Mutex
	messages []whatsapp.Message
	failures int
	err      error
	noIDs    bool
}

func (s *recordingSender) SendText(ctx context.Context, msg whatsapp.Message) (*whatsapp.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return nil, s.err
	}
	s.messages = append(s.messages, msg)
	if s.noIDs {
		return &whatsapp.SendResult{}, nil
	}
	return &whatsapp.SendResult{MessageID: fmt.Sprintf("wamid-%d", len(s.messages))}, nil
}

func (s *recordingSender) sent() []whatsapp.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]whatsapp.Message(nil), s.messages...)
}

// keyedLocker stands in for the advisory lock with one mutex per store.
type keyedLocker struct {
	mu *sync.Mutex
}

func (l keyedLocker) WithLock(ctx context.Context, key models.OccurrenceKey, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

type pipeline struct {
	store         *clubStore
	sender        *recordingSender
	signer        *claimtoken.Signer
	capacity      *CapacityService
	waitlist      *WaitlistService
	tokens        *TokenService
	notifications *NotificationService
	claims        *ClaimService
	workflow      *WaitlistWorkflowService
	participants  *ParticipantService
}

func clockAt(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

// newPipeline wires every waitlist service against one clubStore. now is
// shared so tests can move the clock.
func newPipeline(store *clubStore, now *time.Time, retries resendScheduler) *pipeline {
	sender := &recordingSender{}
	signer := claimtoken.NewSigner(testSecret)
	clock := clockAt(now)

	capacity := NewCapacityService(storeClasses{store}, storeParticipants{store}, storeTokens{store}, nil)
	capacity.now = clock
	waitlist := NewWaitlistService(storeWaitlist{store}, storeClasses{store}, storeStudents{store}, storeParticipants{store}, nil, nil)
	waitlist.now = clock
	tokens := NewTokenService(storeTokens{store}, storeNotifications{store}, signer, TokenConfig{TTL: 24 * time.Hour, PublicBaseURL: testBaseURL}, nil, nil)
	tokens.now = clock
	directory := NewClubDirectoryService(storeClubs{store}, nil, time.Minute, nil)
	notifications := NewNotificationService(storeNotifications{store}, storeClasses{store}, directory, sender, phone.NewNormalizer("ES"), NotificationConfig{}, nil, nil)
	notifications.now = clock
	claims := NewClaimService(storeClaims{store}, storeTokens{store}, storeClasses{store}, storeStudents{store}, signer, nil, nil)
	claims.now = clock
	workflow := NewWaitlistWorkflowService(capacity, waitlist, tokens, notifications, retries, keyedLocker{mu: &store.lockMu}, nil, nil)
	workflow.now = clock
	participants := NewParticipantService(storeParticipants{store}, storeClasses{store}, storeStudents{store}, workflow, nil, nil)
	participants.now = clock

	return &pipeline{
		store:         store,
		sender:        sender,
		signer:        signer,
		capacity:      capacity,
		waitlist:      waitlist,
		tokens:        tokens,
		notifications: notifications,
		claims:        claims,
		workflow:      workflow,
		participants:  participants,
	}
}
