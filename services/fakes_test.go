package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aldiyarbek/tournament-bot/brackets"
	"github.com/aldiyarbek/tournament-bot/chat"
	"github.com/aldiyarbek/tournament-bot/models"
	"github.com/aldiyarbek/tournament-bot/repositories"
	"github.com/aldiyarbek/tournament-bot/storage"
)

// memStore is the shared backing state for the in-memory repository fakes.
// The fake repositories mimic the contract of the postgres implementations,
// including their sentinel errors.
type memStore struct {
	mu          sync.Mutex
	nextID      int
	apps        map[int]*models.Application
	settings    models.TournamentSettings
	settingsErr error
	admins      map[int64]*models.Admin
}

func newMemStore(maxTeams, teamSize int) *memStore {
	return &memStore{
		apps: make(map[int]*models.Application),
		settings: models.TournamentSettings{
			MaxTeams: maxTeams,
			TeamSize: teamSize,
			Stage:    models.StageRegistration,
		},
		admins: make(map[int64]*models.Admin),
	}
}

func copyApp(app *models.Application) *models.Application {
	clone := *app
	if app.Group != nil {
		g := *app.Group
		clone.Group = &g
	}
	if app.Position != nil {
		p := *app.Position
		clone.Position = &p
	}
	return &clone
}

func (s *memStore) sortedApps() []*models.Application {
	apps := make([]*models.Application, 0, len(s.apps))
	for _, app := range s.apps {
		apps = append(apps, copyApp(app))
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return apps
}

type fakeApplicationRepo struct{ store *memStore }

func (r *fakeApplicationRepo) Create(ctx context.Context, app *models.Application) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.apps {
		if existing.UserID == app.UserID && existing.Status != models.ApplicationRejected {
			return repositories.ErrApplicationConflict
		}
	}
	s.nextID++
	app.ID = s.nextID
	app.CreatedAt = time.Now()
	s.apps[app.ID] = copyApp(app)
	return nil
}

func (r *fakeApplicationRepo) FindByID(ctx context.Context, id int) (*models.Application, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, repositories.ErrApplicationNotFound
	}
	return copyApp(app), nil
}

func (r *fakeApplicationRepo) FindByUser(ctx context.Context, userID int64) (*models.Application, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Application
	for _, app := range s.apps {
		if app.UserID != userID {
			continue
		}
		// Активная заявка важнее отклонённой, как и у партиального индекса.
		if app.Status != models.ApplicationRejected {
			return copyApp(app), nil
		}
		if latest == nil || app.ID > latest.ID {
			latest = app
		}
	}
	if latest == nil {
		return nil, repositories.ErrApplicationNotFound
	}
	return copyApp(latest), nil
}

func (r *fakeApplicationRepo) UpdateStatus(ctx context.Context, id int, status models.ApplicationStatus) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return repositories.ErrApplicationNotFound
	}
	app.Status = status
	return nil
}

func (r *fakeApplicationRepo) DeleteByUserAndStatus(ctx context.Context, userID int64, status models.ApplicationStatus) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, app := range s.apps {
		if app.UserID == userID && app.Status == status {
			delete(s.apps, id)
		}
	}
	return nil
}

func (r *fakeApplicationRepo) ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]*models.Application, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Application
	for _, app := range s.sortedApps() {
		if app.Status == status {
			out = append(out, app)
		}
	}
	return out, nil
}

func (r *fakeApplicationRepo) ListRecent(ctx context.Context, limit int) ([]*models.Application, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	apps := s.sortedApps()
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID > apps[j].ID })
	if len(apps) > limit {
		apps = apps[:limit]
	}
	return apps, nil
}

func (r *fakeApplicationRepo) ListBracket(ctx context.Context) ([]*models.Application, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var placed []*models.Application
	for _, app := range s.sortedApps() {
		if app.Placed() {
			placed = append(placed, app)
		}
	}
	sort.Slice(placed, func(i, j int) bool {
		if *placed[i].Group != *placed[j].Group {
			return *placed[i].Group < *placed[j].Group
		}
		return *placed[i].Position < *placed[j].Position
	})
	return placed, nil
}

func (r *fakeApplicationRepo) ListRecipients(ctx context.Context, audience models.BroadcastAudience) ([]int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]bool)
	var out []int64
	for _, app := range s.sortedApps() {
		switch audience {
		case models.AudienceApproved:
			if app.Status != models.ApplicationApproved {
				continue
			}
		case models.AudiencePending:
			if app.Status != models.ApplicationPending {
				continue
			}
		}
		if !seen[app.UserID] {
			seen[app.UserID] = true
			out = append(out, app.UserID)
		}
	}
	return out, nil
}

func (r *fakeApplicationRepo) CountByStatus(ctx context.Context, status models.ApplicationStatus) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, app := range s.apps {
		if app.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeApplicationRepo) GetStats(ctx context.Context) (*models.Stats, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.Stats{}
	for _, app := range s.apps {
		switch app.Status {
		case models.ApplicationPending:
			stats.Pending++
		case models.ApplicationApproved:
			stats.Approved++
		case models.ApplicationRejected:
			stats.Rejected++
		}
		stats.Total++
	}
	return stats, nil
}

type fakeSettingsRepo struct{ store *memStore }

func (r *fakeSettingsRepo) Get(ctx context.Context) (*models.TournamentSettings, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settingsErr != nil {
		return nil, s.settingsErr
	}
	settings := s.settings
	if s.settings.Channel != nil {
		channel := *s.settings.Channel
		settings.Channel = &channel
	}
	return &settings, nil
}

func (r *fakeSettingsRepo) EnsureDefaults(ctx context.Context, maxTeams, teamSize int, channel *string) error {
	return nil
}

func (r *fakeSettingsRepo) UpdateMaxTeams(ctx context.Context, maxTeams int) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.MaxTeams = maxTeams
	return nil
}

func (r *fakeSettingsRepo) UpdateTeamSize(ctx context.Context, teamSize int) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.TeamSize = teamSize
	return nil
}

func (r *fakeSettingsRepo) UpdateChannel(ctx context.Context, channel *string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Channel = channel
	return nil
}

type fakeAdminRepo struct{ store *memStore }

func (r *fakeAdminRepo) Create(ctx context.Context, admin *models.Admin) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[admin.UserID]; ok {
		return repositories.ErrAdminConflict
	}
	admin.AddedAt = time.Now()
	clone := *admin
	s.admins[admin.UserID] = &clone
	return nil
}

func (r *fakeAdminRepo) Upsert(ctx context.Context, admin *models.Admin) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.admins[admin.UserID]; ok {
		admin.AddedAt = existing.AddedAt
		return nil
	}
	admin.AddedAt = time.Now()
	clone := *admin
	s.admins[admin.UserID] = &clone
	return nil
}

func (r *fakeAdminRepo) Delete(ctx context.Context, userID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[userID]; !ok {
		return repositories.ErrAdminNotFound
	}
	delete(s.admins, userID)
	return nil
}

func (r *fakeAdminRepo) Exists(ctx context.Context, userID int64) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.admins[userID]
	return ok, nil
}

func (r *fakeAdminRepo) List(ctx context.Context) ([]*models.Admin, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	admins := make([]*models.Admin, 0, len(s.admins))
	for _, admin := range s.admins {
		clone := *admin
		admins = append(admins, &clone)
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].UserID < admins[j].UserID })
	return admins, nil
}

func (r *fakeAdminRepo) Count(ctx context.Context) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.admins), nil
}

type fakeTournamentRepo struct{ store *memStore }

func (r *fakeTournamentRepo) ApproveWithinCapacity(ctx context.Context, applicationID, maxTeams int) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[applicationID]
	if !ok {
		return 0, repositories.ErrApplicationNotFound
	}
	if app.Status != models.ApplicationPending {
		return 0, repositories.ErrApplicationNotPending
	}
	approved := 0
	for _, a := range s.apps {
		if a.Status == models.ApplicationApproved {
			approved++
		}
	}
	if approved >= maxTeams {
		return 0, repositories.ErrCapacityExhausted
	}
	app.Status = models.ApplicationApproved
	return approved + 1, nil
}

func (r *fakeTournamentRepo) writeAssignments(assignments []brackets.Assignment) error {
	for _, app := range r.store.apps {
		app.Group = nil
		app.Position = nil
	}
	for _, a := range assignments {
		app, ok := r.store.apps[a.ApplicationID]
		if !ok {
			return fmt.Errorf("assignment for unknown application %d", a.ApplicationID)
		}
		group, position := a.Group, a.Position
		app.Group = &group
		app.Position = &position
	}
	return nil
}

func (r *fakeTournamentRepo) StartWithBracket(ctx context.Context, assignments []brackets.Assignment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := r.writeAssignments(assignments); err != nil {
		return err
	}
	s.settings.Started = true
	s.settings.Stage = models.StageGroupStage
	return nil
}

func (r *fakeTournamentRepo) RewriteBracket(ctx context.Context, assignments []brackets.Assignment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.writeAssignments(assignments)
}

func (r *fakeTournamentRepo) Reset(ctx context.Context) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, app := range s.apps {
		app.Group = nil
		app.Position = nil
	}
	s.settings.Started = false
	s.settings.Stage = models.StageRegistration
	return nil
}

// fakeTransport records outgoing messages and can be told to fail delivery
// to specific chats.
type fakeTransport struct {
	mu         sync.Mutex
	sent       []sentMessage
	edited     []chat.MessageRef
	failChats  map[int64]bool
	membership map[int64]chat.MembershipStatus
}

type sentMessage struct {
	ChatID  int64
	Message chat.Message
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		failChats:  make(map[int64]bool),
		membership: make(map[int64]chat.MembershipStatus),
	}
}

func (t *fakeTransport) SendMessage(ctx context.Context, chatID int64, msg chat.Message) (chat.MessageRef, error) {
	// Реальный HTTP-транспорт падает на отменённом контексте.
	if err := ctx.Err(); err != nil {
		return chat.MessageRef{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failChats[chatID] {
		return chat.MessageRef{}, fmt.Errorf("delivery to chat %d failed", chatID)
	}
	t.sent = append(t.sent, sentMessage{ChatID: chatID, Message: msg})
	return chat.MessageRef{ChatID: chatID, MessageID: len(t.sent)}, nil
}

func (t *fakeTransport) EditMessage(ctx context.Context, ref chat.MessageRef, msg chat.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.edited = append(t.edited, ref)
	return nil
}

func (t *fakeTransport) GetMembershipStatus(ctx context.Context, channel string, userID int64) (chat.MembershipStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	status, ok := t.membership[userID]
	if !ok {
		return chat.StatusLeft, nil
	}
	return status, nil
}

func (t *fakeTransport) sentTo(chatID int64) []sentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []sentMessage
	for _, m := range t.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

var _ storage.FileUploader = (*fakeUploader)(nil)

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
}

func (u *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.keys = append(u.keys, key)
	return &storage.UploadResult{Key: key, Location: "https://cdn.example.com/" + key}, nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

const (
	testPrimaryAdmin     = int64(1000)
	testModerationChatID = int64(-100500)
)

// testEnv wires the full service graph over the in-memory fakes.
type testEnv struct {
	store         *memStore
	transport     *fakeTransport
	uploader      *fakeUploader
	admins        *AdminService
	admissions    *AdmissionService
	tournaments   *TournamentService
	broadcasts    *BroadcastService
	registrations *RegistrationService
	subscriptions *SubscriptionChecker
}

func newTestEnv(maxTeams, teamSize int) *testEnv {
	store := newMemStore(maxTeams, teamSize)
	transport := newFakeTransport()
	uploader := &fakeUploader{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appRepo := &fakeApplicationRepo{store: store}
	settingsRepo := &fakeSettingsRepo{store: store}
	adminRepo := &fakeAdminRepo{store: store}
	tournamentRepo := &fakeTournamentRepo{store: store}

	lock := NewTournamentLock()
	hub := brackets.NewHub()
	notifier := NewChatNotifier(transport, testModerationChatID, logger)
	generator := brackets.NewGroupGenerator()

	admins := NewAdminService(adminRepo, testPrimaryAdmin, logger)
	if err := admins.Bootstrap(context.Background()); err != nil {
		panic(err)
	}

	tournaments := NewTournamentService(
		lock, appRepo, settingsRepo, tournamentRepo, admins,
		generator, notifier, hub, uploader, logger,
	)
	admissions := NewAdmissionService(
		lock, appRepo, settingsRepo, tournamentRepo, admins,
		generator, tournaments, notifier, logger,
	)
	subscriptions := NewSubscriptionChecker(settingsRepo, transport, logger)
	registrations := NewRegistrationService(admissions, settingsRepo, notifier, logger)
	broadcasts := NewBroadcastService(appRepo, admins, transport, hub, logger)

	return &testEnv{
		store:         store,
		transport:     transport,
		uploader:      uploader,
		admins:        admins,
		admissions:    admissions,
		tournaments:   tournaments,
		broadcasts:    broadcasts,
		registrations: registrations,
		subscriptions: subscriptions,
	}
}

func (e *testEnv) submit(userID int64, team string) (*models.Application, error) {
	return e.admissions.Submit(context.Background(), SubmitInput{
		UserID:   userID,
		FullName: fmt.Sprintf("Captain %d", userID),
		TeamName: team,
		Members:  []string{"A", "B"},
		Contact:  "@captain",
	})
}
