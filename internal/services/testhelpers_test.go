package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/platform/apierr"
)

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %q, got nil", code)
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error with code %q, got %T: %v", code, err, err)
	}
	if ae.Code != code {
		t.Fatalf("error code = %q, want %q (err: %v)", ae.Code, code, err)
	}
}

// fakeBucket keeps objects in memory. Keys whose suffix matches a registered
// failure are rejected on write, which is how the partial-success upload
// tests inject storage errors.
type fakeBucket struct {
	mu          sync.Mutex
	objects     map[string][]byte
	failSuffix  string
	putCount    int
	deleteCount int
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) UploadFile(dbc dbctx.Context, key string, file io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSuffix != "" && strings.HasSuffix(key, b.failSuffix) {
		return fmt.Errorf("simulated storage failure for %s", key)
	}
	raw, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.objects[key] = raw
	b.putCount++
	return nil
}

func (b *fakeBucket) DeleteFile(dbc dbctx.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleteCount++
	return nil
}

func (b *fakeBucket) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(strings.NewReader(string(raw))), nil
}

func (b *fakeBucket) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

func (b *fakeBucket) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := []string{}
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *fakeBucket) DeletePrefix(ctx context.Context, prefix string) error {
	keys, _ := b.ListKeys(ctx, prefix)
	for _, k := range keys {
		_ = b.DeleteFile(dbctx.Context{Ctx: ctx}, k)
	}
	return nil
}

func (b *fakeBucket) SignedURL(key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func (b *fakeBucket) GetPublicURL(key string) string {
	return "https://storage.example/" + key
}

func (b *fakeBucket) ObjectURI(key string) string {
	return "gs://test-bucket/" + key
}

func (b *fakeBucket) object(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.objects[key]
	return raw, ok
}

type testEnv struct {
	db     *gorm.DB
	log    *logger.Logger
	bucket *fakeBucket

	userRepo       repos.UserRepo
	userTokenRepo  repos.UserTokenRepo
	memberRepo     repos.ProjectMemberRepo
	projectRepo    repos.ProjectRepo
	imageRepo      repos.ImageRepo
	annotationRepo repos.AnnotationRepo
	assignmentRepo repos.AssignmentRepo
	submissionRepo repos.SubmissionRepo

	stats       StatsService
	images      ImageService
	annotations AnnotationService
	submissions SubmissionService
	assignments AssignmentService
	projects    ProjectService
	dashboard   DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.UserToken{},
		&domain.Project{},
		&domain.ProjectMember{},
		&domain.ProjectImage{},
		&domain.Annotation{},
		&domain.Assignment{},
		&domain.Submission{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}

	bucket := newFakeBucket()
	env := &testEnv{
		db:             db,
		log:            log,
		bucket:         bucket,
		userRepo:       repos.NewUserRepo(db, log),
		userTokenRepo:  repos.NewUserTokenRepo(db, log),
		memberRepo:     repos.NewProjectMemberRepo(db, log),
		projectRepo:    repos.NewProjectRepo(db, log),
		imageRepo:      repos.NewImageRepo(db, log),
		annotationRepo: repos.NewAnnotationRepo(db, log),
		assignmentRepo: repos.NewAssignmentRepo(db, log),
		submissionRepo: repos.NewSubmissionRepo(db, log),
	}
	env.stats = NewStatsService(log, env.projectRepo, env.imageRepo, nil)
	env.images = NewImageService(log, bucket, env.projectRepo, env.memberRepo, env.imageRepo, env.annotationRepo, env.stats)
	env.annotations = NewAnnotationService(log, bucket, env.projectRepo, env.memberRepo, env.imageRepo, env.annotationRepo, env.assignmentRepo, env.stats)
	env.submissions = NewSubmissionService(log, env.projectRepo, env.memberRepo, env.imageRepo, env.assignmentRepo, env.submissionRepo, env.stats)
	env.assignments = NewAssignmentService(log, env.projectRepo, env.memberRepo, env.imageRepo, env.assignmentRepo)
	env.projects = NewProjectService(db, log, bucket, env.projectRepo, env.memberRepo, env.imageRepo, env.annotationRepo, env.assignmentRepo, env.submissionRepo, env.stats)
	env.dashboard = NewDashboardService(log, env.projectRepo, env.imageRepo, env.assignmentRepo)
	return env
}

func testDBC() dbctx.Context {
	return dbctx.New(context.Background())
}

func (env *testEnv) seedUser(t *testing.T, email, role string) *domain.User {
	t.Helper()
	now := time.Now()
	u := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := env.userRepo.Create(testDBC(), []*domain.User{u}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// seedProject creates a project owned by admin with two classes ("car",
// "person") and the given annotators as members.
func (env *testEnv) seedProject(t *testing.T, admin *domain.User, annotators ...*domain.User) *domain.Project {
	t.Helper()
	project, err := env.projects.Create(testDBC(), admin.ID, ProjectInput{
		Name: "test project",
		Classes: []domain.ProjectClass{
			{ID: "cls-car", Name: "car", Color: "#ff0000"},
			{ID: "cls-person", Name: "person", Color: "#00ff00"},
		},
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	ids := make([]uuid.UUID, len(annotators))
	for i, a := range annotators {
		ids[i] = a.ID
	}
	if len(ids) > 0 {
		if _, err := env.projects.AddMembers(testDBC(), project.ID, admin.ID, ids); err != nil {
			t.Fatalf("seed members: %v", err)
		}
	}
	return project
}

func (env *testEnv) seedImages(t *testing.T, project *domain.Project, uploader *domain.User, count int) []*domain.ProjectImage {
	t.Helper()
	files := make([]UploadedImage, count)
	for i := range files {
		files[i] = UploadedImage{
			Filename: fmt.Sprintf("img-%d.jpg", i+1),
			Content:  []byte(fmt.Sprintf("image-bytes-%d", i+1)),
		}
	}
	created, failed, err := env.images.Upload(testDBC(), project.ID, uploader.ID, true, files)
	if err != nil {
		t.Fatalf("seed images: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("seed images: unexpected failures %v", failed)
	}
	return created
}

func (env *testEnv) assign(t *testing.T, project *domain.Project, admin, annotator *domain.User, images []*domain.ProjectImage) *domain.Assignment {
	t.Helper()
	ids := make([]uuid.UUID, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	assignment, err := env.assignments.Assign(testDBC(), project.ID, annotator.ID, admin.ID, ids)
	if err != nil {
		t.Fatalf("assign images: %v", err)
	}
	return assignment
}

// annotate completes an image through the save path with one box per class
// index 0.
func (env *testEnv) annotate(t *testing.T, project *domain.Project, img *domain.ProjectImage, user *domain.User) {
	t.Helper()
	objects := []domain.AnnotationObject{
		{ClassID: "cls-car", ClassName: "car", X: 0.5, Y: 0.5, Width: 0.25, Height: 0.25},
	}
	if _, err := env.annotations.Save(testDBC(), project.ID, img.ID, user.ID, false, objects, 10, false); err != nil {
		t.Fatalf("annotate image: %v", err)
	}
}

func (env *testEnv) reloadImage(t *testing.T, id uuid.UUID) *domain.ProjectImage {
	t.Helper()
	img, err := env.imageRepo.GetByID(testDBC(), id)
	if err != nil || img == nil {
		t.Fatalf("reload image %s: err=%v img=%v", id, err, img)
	}
	return img
}

func (env *testEnv) reloadProject(t *testing.T, id uuid.UUID) *domain.Project {
	t.Helper()
	p, err := env.projectRepo.GetByID(testDBC(), id)
	if err != nil || p == nil {
		t.Fatalf("reload project %s: err=%v project=%v", id, err, p)
	}
	return p
}
