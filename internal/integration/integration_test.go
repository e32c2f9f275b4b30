package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"lecture-quiz-service/internal/app"
	"lecture-quiz-service/internal/domain"
	"lecture-quiz-service/internal/infra/postgres"
	pgmigrations "lecture-quiz-service/internal/infra/postgres/migrations"
	infraredis "lecture-quiz-service/internal/infra/redis"
	"lecture-quiz-service/internal/logger"
)

func TestPracticeEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := postgres.NewPayloadLoader(pool)
	if err := loader.SavePayload(ctx, samplePayload()); err != nil {
		t.Fatalf("seed payload: %v", err)
	}
	favorites := postgres.NewFavoriteService(pool)
	folder, err := favorites.CreateFolder(ctx, "u1", "review later")
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	log := logger.Nop()
	sets := infraredis.NewQuestionSetRepository(redisClient, loader, 5*time.Minute, log)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute, log)
	service := app.NewPracticeService(sessionStore, sets, favorites, log)

	view, err := service.StartLinear(ctx, "u1", "net-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.Question == nil || view.Question.Type != domain.TypeMultipleChoice {
		t.Fatalf("expected multiple choice set, got %+v", view.Question)
	}
	sessionID := view.SessionID

	if _, err := service.Answer(ctx, sessionID, domain.Text("B")); err != nil {
		t.Fatalf("answer: %v", err)
	}
	entry, _, err := service.Check(ctx, sessionID)
	if err != nil || !entry.IsCorrect {
		t.Fatalf("expected correct answer, got %+v err=%v", entry, err)
	}

	service.WaitFavorites(sessionID)
	if err := service.ToggleFavorite(ctx, sessionID, folder.FolderID); err != nil {
		t.Fatalf("toggle favorite: %v", err)
	}
	service.WaitFavorites(sessionID)
	status, err := favorites.CheckStatus(ctx, "u1", domain.FavoriteKey{QuestionID: "net-1", QuestionIndex: 0})
	if err != nil || !status.IsFavorite {
		t.Fatalf("expected question favorited, got %+v err=%v", status, err)
	}

	if _, err := service.Next(ctx, sessionID); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := service.Answer(ctx, sessionID, domain.Text("A")); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, _, err := service.Check(ctx, sessionID); err != nil {
		t.Fatalf("check: %v", err)
	}
	view, err = service.Next(ctx, sessionID)
	if err != nil || !view.Complete || view.Summary.Correct != 1 || view.Summary.Visited != 2 {
		t.Fatalf("expected 1/2 summary, got %+v err=%v", view, err)
	}

	view, retried, err := service.RetryWrong(ctx, sessionID)
	if err != nil || !retried || view.Total != 1 {
		t.Fatalf("retry: %+v retried=%v err=%v", view, retried, err)
	}

	if n, _ := redisClient.Exists(ctx, "questionset:net-1", "practice:session:"+sessionID).Result(); n != 2 {
		t.Fatalf("expected cached payload and session marker, got %d keys", n)
	}
	service.Close(sessionID)
	if n, _ := redisClient.Exists(ctx, "practice:session:"+sessionID).Result(); n != 0 {
		t.Fatalf("expected session marker removed")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func samplePayload() domain.Payload {
	return domain.Payload{
		ID:          "net-1",
		DisplayType: "객관식",
		Raw: []byte(`{"questions":[
			{"question_text":"Which protocol is connectionless?","options":["TCP","UDP"],"correct_answer":2},
			{"question_text":"Which port does HTTPS use?","options":["80","443"],"correct_answer":2}
		]}`),
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
