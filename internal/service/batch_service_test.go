package service

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rubriq/rubriq-api/internal/batch"
	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/models"
)

// stubParser lets batch tests script per-file outcomes without a real model.
type stubParser struct {
	mu      sync.Mutex
	errs    map[string]error
	uploads []string
}

func (s *stubParser) ParseText(ctx context.Context, assignmentID uint, payload dto.SubmissionParseRequest) (dto.SubmissionWithAnswersResponse, error) {
	return dto.SubmissionWithAnswersResponse{}, nil
}

func (s *stubParser) ParseFile(ctx context.Context, assignmentID uint, studentName, studentEmail string, file *multipart.FileHeader) (dto.SubmissionWithAnswersResponse, error) {
	return dto.SubmissionWithAnswersResponse{}, nil
}

func (s *stubParser) ParseUpload(ctx context.Context, assignmentID uint, studentName, fileName string, data []byte) (dto.SubmissionWithAnswersResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, studentName)
	return dto.SubmissionWithAnswersResponse{}, s.errs[fileName]
}

func (s *stubParser) uploadedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...)
}

func multipartFiles(t *testing.T, names ...string) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("answer text for " + name))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["files"]
}

type batchFixture struct {
	batches   *memoryBatchRepo
	parser    *stubParser
	pool      *batch.Pool
	cache     *redis.Client
	publisher *recordingPublisher
	service   BatchService

	assignmentID uint
}

func newBatchFixture(t *testing.T) *batchFixture {
	t.Helper()
	ctx := context.Background()

	server := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { cache.Close() })

	assignments := newMemoryAssignmentRepo()
	assignment := models.Assignment{Title: "Batch Target", TotalPoints: 100}
	require.NoError(t, assignments.Create(ctx, &assignment))

	f := &batchFixture{
		batches:      newMemoryBatchRepo(),
		parser:       &stubParser{errs: make(map[string]error)},
		pool:         batch.NewPool(2, 1, time.Millisecond, zerolog.Nop()),
		cache:        cache,
		publisher:    &recordingPublisher{},
		assignmentID: assignment.ID,
	}
	t.Cleanup(func() { f.pool.Shutdown(context.Background()) })

	f.service = NewBatchService(f.batches, assignments, f.parser, f.pool, f.cache, f.publisher, time.Minute, time.Second, zerolog.Nop())
	return f
}

func (f *batchFixture) waitFinished(t *testing.T, batchID uint) dto.BatchResponse {
	t.Helper()
	var last dto.BatchResponse
	require.Eventually(t, func() bool {
		resp, err := f.service.Get(context.Background(), batchID)
		if err != nil {
			return false
		}
		last = resp
		return resp.Status == models.BatchStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	return last
}

func TestBatchStartProcessesAllFiles(t *testing.T) {
	f := newBatchFixture(t)

	resp, err := f.service.Start(context.Background(), f.assignmentID, multipartFiles(t, "ada_lovelace.txt", "grace-hopper.txt"))
	require.NoError(t, err)
	require.Equal(t, models.BatchStatusRunning, resp.Status)
	require.Equal(t, 2, resp.TotalFiles)

	final := f.waitFinished(t, resp.ID)
	require.Equal(t, 2, final.ProcessedFiles)
	require.Equal(t, 0, final.FailedFiles)

	// File names become student names, extension and separators stripped.
	require.ElementsMatch(t, []string{"ada lovelace", "grace hopper"}, f.parser.uploadedNames())
	require.Contains(t, f.publisher.subjects(), EventBatchCompleted)
}

func TestBatchCountsTerminalRejectionsAsFailed(t *testing.T) {
	f := newBatchFixture(t)
	f.parser.errs["empty.txt"] = ErrEmptyDocument

	resp, err := f.service.Start(context.Background(), f.assignmentID, multipartFiles(t, "empty.txt", "fine.txt"))
	require.NoError(t, err)

	final := f.waitFinished(t, resp.ID)
	require.Equal(t, 1, final.ProcessedFiles)
	require.Equal(t, 1, final.FailedFiles)
	require.Equal(t, models.BatchStatusCompleted, final.Status)
}

func TestBatchCountsExhaustedRetriesAsFailed(t *testing.T) {
	f := newBatchFixture(t)
	// Transient errors are retried by the pool; when every attempt fails the
	// file must still settle the batch instead of leaving it running forever.
	f.parser.errs["flaky.txt"] = errors.New("upstream timeout")

	resp, err := f.service.Start(context.Background(), f.assignmentID, multipartFiles(t, "flaky.txt", "fine.txt"))
	require.NoError(t, err)

	final := f.waitFinished(t, resp.ID)
	require.Equal(t, 1, final.ProcessedFiles)
	require.Equal(t, 1, final.FailedFiles)
	require.Equal(t, models.BatchStatusCompleted, final.Status)
	require.Contains(t, f.publisher.subjects(), EventBatchCompleted)
}

func TestBatchGetPrefersCachedSnapshot(t *testing.T) {
	f := newBatchFixture(t)

	resp, err := f.service.Start(context.Background(), f.assignmentID, multipartFiles(t, "one.txt"))
	require.NoError(t, err)
	f.waitFinished(t, resp.ID)

	// Cache hit must not touch the repository.
	f.batches.mu.Lock()
	delete(f.batches.batches, resp.ID)
	f.batches.mu.Unlock()

	cached, err := f.service.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Equal(t, resp.ID, cached.ID)
	require.Equal(t, 1, cached.ProcessedFiles)
}

func TestBatchGetFallsBackToRepositoryWithoutCache(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	uploadBatch := models.UploadBatch{AssignmentID: f.assignmentID, TotalFiles: 3, Status: models.BatchStatusRunning}
	require.NoError(t, f.batches.Create(ctx, &uploadBatch))

	resp, err := f.service.Get(ctx, uploadBatch.ID)
	require.NoError(t, err)
	require.Equal(t, 3, resp.TotalFiles)
}

func TestBatchRejectsEmptyUpload(t *testing.T) {
	f := newBatchFixture(t)

	_, err := f.service.Start(context.Background(), f.assignmentID, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestBatchUnknownAssignment(t *testing.T) {
	f := newBatchFixture(t)

	_, err := f.service.Start(context.Background(), 999, multipartFiles(t, "one.txt"))
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestBatchUnknownID(t *testing.T) {
	f := newBatchFixture(t)

	_, err := f.service.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrBatchNotFound)
}
