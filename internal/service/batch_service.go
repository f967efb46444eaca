package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/batch"
	"github.com/rubriq/rubriq-api/internal/dto"
	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/internal/repository"
)

var (
	// ErrBatchNotFound indicates the requested upload batch does not exist.
	ErrBatchNotFound = errors.New("upload batch not found")
	// ErrEmptyBatch indicates an upload request carried no files.
	ErrEmptyBatch = errors.New("no files in upload batch")
)

// BatchService processes multi-file submission uploads in the background.
type BatchService interface {
	Start(ctx context.Context, assignmentID uint, files []*multipart.FileHeader) (dto.BatchResponse, error)
	Get(ctx context.Context, id uint) (dto.BatchResponse, error)
}

type batchService struct {
	batches     repository.BatchRepository
	assignments repository.AssignmentRepository
	parser      ParseService
	pool        *batch.Pool
	cache       *redis.Client
	events      EventPublisher
	progressTTL time.Duration
	jobTimeout  time.Duration
	logger      zerolog.Logger

	// snapshotMu serializes cache writes; snapshotSeen tracks the highest
	// settled-file count written per batch so a slow worker cannot clobber
	// a newer snapshot with an older one.
	snapshotMu   sync.Mutex
	snapshotSeen map[uint]int
}

// NewBatchService builds the background upload processor. cache may be nil
// when redis is not configured; progress reads then fall through to the
// database.
func NewBatchService(
	batches repository.BatchRepository,
	assignments repository.AssignmentRepository,
	parser ParseService,
	pool *batch.Pool,
	cache *redis.Client,
	events EventPublisher,
	progressTTL time.Duration,
	jobTimeout time.Duration,
	logger zerolog.Logger,
) BatchService {
	if progressTTL <= 0 {
		progressTTL = 10 * time.Minute
	}
	if jobTimeout <= 0 {
		jobTimeout = 90 * time.Second
	}
	return &batchService{
		batches:      batches,
		assignments:  assignments,
		parser:       parser,
		pool:         pool,
		cache:        cache,
		events:       events,
		progressTTL:  progressTTL,
		jobTimeout:   jobTimeout,
		logger:       logger.With().Str("component", "batch_service").Logger(),
		snapshotSeen: make(map[uint]int),
	}
}

type batchFile struct {
	name string
	data []byte
}

// Start buffers the uploaded files, records the batch, and enqueues one worker
// job per file. It returns immediately; progress is polled via Get.
func (s *batchService) Start(ctx context.Context, assignmentID uint, files []*multipart.FileHeader) (dto.BatchResponse, error) {
	if len(files) == 0 {
		return dto.BatchResponse{}, ErrEmptyBatch
	}

	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BatchResponse{}, ErrAssignmentNotFound
		}
		return dto.BatchResponse{}, err
	}

	// Buffer everything before returning; multipart readers are invalid once
	// the request completes.
	buffered := make([]batchFile, 0, len(files))
	for _, header := range files {
		src, err := header.Open()
		if err != nil {
			return dto.BatchResponse{}, fmt.Errorf("failed to open %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return dto.BatchResponse{}, fmt.Errorf("failed to read %s: %w", header.Filename, err)
		}
		buffered = append(buffered, batchFile{name: header.Filename, data: data})
	}

	uploadBatch := models.UploadBatch{
		AssignmentID: assignmentID,
		TotalFiles:   len(buffered),
		Status:       models.BatchStatusRunning,
	}
	if err := s.batches.Create(ctx, &uploadBatch); err != nil {
		return dto.BatchResponse{}, err
	}

	// Cache the 0/N snapshot before any worker can run, so a fast worker's
	// progress write is never clobbered by the initial one.
	response := dto.NewBatchResponse(uploadBatch)
	s.snapshot(ctx, response)

	for _, file := range buffered {
		file := file
		name := file.name
		err := s.pool.Submit(func(jobCtx context.Context) error {
			return s.processFile(jobCtx, uploadBatch.ID, assignmentID, file)
		}, func(err error) {
			// Retries exhausted; the file still has to settle the batch.
			s.logger.Error().Err(err).Uint("batch_id", uploadBatch.ID).Str("file", name).Msg("file abandoned after retries")
			s.recordResult(context.Background(), uploadBatch.ID, true)
		})
		if err != nil {
			// Pool shut down mid-enqueue; count the file as failed so the
			// batch still reaches a terminal state.
			s.recordResult(context.Background(), uploadBatch.ID, true)
		}
	}

	s.logger.Info().
		Uint("batch_id", uploadBatch.ID).
		Uint("assignment_id", assignmentID).
		Int("files", len(buffered)).
		Msg("upload batch enqueued")

	return response, nil
}

// Get returns batch progress, preferring the cached snapshot written by the
// most recent worker completion.
func (s *batchService) Get(ctx context.Context, id uint) (dto.BatchResponse, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, batchCacheKey(id)).Result()
		if err == nil {
			var cached dto.BatchResponse
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Uint("batch_id", id).Msg("progress cache read failed")
		}
	}

	uploadBatch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BatchResponse{}, ErrBatchNotFound
		}
		return dto.BatchResponse{}, err
	}

	return dto.NewBatchResponse(uploadBatch), nil
}

// processFile runs one parse job. Returning an error triggers the pool's
// retry; the batch counter is only advanced once the outcome is final.
func (s *batchService) processFile(ctx context.Context, batchID, assignmentID uint, file batchFile) error {
	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	_, err := s.parser.ParseUpload(jobCtx, assignmentID, studentNameFromFile(file.name), file.name, file.data)
	if err != nil {
		if retryable(err) {
			return err
		}
		s.logger.Warn().Err(err).Uint("batch_id", batchID).Str("file", file.name).Msg("file rejected")
		s.recordResult(ctx, batchID, true)
		return nil
	}

	s.recordResult(ctx, batchID, false)
	return nil
}

func (s *batchService) recordResult(ctx context.Context, batchID uint, failed bool) {
	uploadBatch, err := s.batches.RecordResult(ctx, batchID, failed)
	if err != nil {
		s.logger.Error().Err(err).Uint("batch_id", batchID).Msg("failed to record batch result")
		return
	}

	response := dto.NewBatchResponse(uploadBatch)

	subject := EventBatchProgress
	if uploadBatch.IsFinished() {
		subject = EventBatchCompleted
	}
	s.events.Publish(subject, response)
	s.snapshot(ctx, response)
}

// snapshot caches the batch state for Get. Writes are monotonic on the number
// of settled files; stale snapshots from racing workers are discarded.
func (s *batchService) snapshot(ctx context.Context, response dto.BatchResponse) {
	if s.cache == nil {
		return
	}

	settled := response.ProcessedFiles + response.FailedFiles
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()
	if seen, ok := s.snapshotSeen[response.ID]; ok && settled <= seen {
		return
	}

	data, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, batchCacheKey(response.ID), data, s.progressTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("batch_id", response.ID).Msg("progress cache write failed")
		return
	}
	s.snapshotSeen[response.ID] = settled
}

// retryable separates transient failures worth another attempt from terminal
// rejections of the file itself.
func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrUploadTooLarge),
		errors.Is(err, ErrUploadTypeNotAllowed),
		errors.Is(err, ErrNoQuestions),
		errors.Is(err, ErrEmptyDocument),
		errors.Is(err, ErrAssignmentNotFound):
		return false
	}
	return true
}

func studentNameFromFile(fileName string) string {
	base := filepath.Base(fileName)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = strings.TrimSpace(name)
	if name == "" {
		return base
	}
	return name
}

func batchCacheKey(id uint) string {
	return fmt.Sprintf("rubriq:batch:%d", id)
}
