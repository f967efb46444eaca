package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/rubriq/rubriq-api/internal/models"
	"github.com/rubriq/rubriq-api/internal/repository"
	"github.com/rubriq/rubriq-api/pkg/ai"
)

type memoryAssignmentRepo struct {
	assignments map[uint]models.Assignment
	nextID      uint
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{assignments: make(map[uint]models.Assignment), nextID: 1}
}

func (m *memoryAssignmentRepo) List(ctx context.Context, filter repository.AssignmentFilter) ([]models.Assignment, int64, error) {
	results := make([]models.Assignment, 0, len(m.assignments))
	for _, assignment := range m.assignments {
		results = append(results, assignment)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, int64(len(results)), nil
}

func (m *memoryAssignmentRepo) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (m *memoryAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = m.nextID
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = time.Now()
	m.assignments[m.nextID] = *assignment
	m.nextID++
	return nil
}

func (m *memoryAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	if _, ok := m.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, id)
	return nil
}

type memoryQuestionRepo struct {
	questions map[uint]models.Question
	nextID    uint
}

func newMemoryQuestionRepo() *memoryQuestionRepo {
	return &memoryQuestionRepo{questions: make(map[uint]models.Question), nextID: 1}
}

func (m *memoryQuestionRepo) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Question, error) {
	results := make([]models.Question, 0)
	for _, question := range m.questions {
		if question.AssignmentID == assignmentID {
			results = append(results, question)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].QuestionNumber < results[j].QuestionNumber })
	return results, nil
}

func (m *memoryQuestionRepo) GetByID(ctx context.Context, id uint) (models.Question, error) {
	question, ok := m.questions[id]
	if !ok {
		return models.Question{}, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (m *memoryQuestionRepo) Create(ctx context.Context, question *models.Question) error {
	question.ID = m.nextID
	m.questions[m.nextID] = *question
	m.nextID++
	return nil
}

func (m *memoryQuestionRepo) CreateBatch(ctx context.Context, questions []models.Question) error {
	for i := range questions {
		if err := m.Create(ctx, &questions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryQuestionRepo) Update(ctx context.Context, question *models.Question) error {
	if _, ok := m.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.questions[question.ID] = *question
	return nil
}

func (m *memoryQuestionRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.questions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.questions, id)
	return nil
}

type memoryRubricRepo struct {
	rubrics map[uint]models.Rubric
	nextID  uint
}

func newMemoryRubricRepo() *memoryRubricRepo {
	return &memoryRubricRepo{rubrics: make(map[uint]models.Rubric), nextID: 1}
}

func (m *memoryRubricRepo) ListByQuestion(ctx context.Context, questionID uint) ([]models.Rubric, error) {
	results := make([]models.Rubric, 0)
	for _, rubric := range m.rubrics {
		if rubric.QuestionID == questionID {
			results = append(results, rubric)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memoryRubricRepo) GetByID(ctx context.Context, id uint) (models.Rubric, error) {
	rubric, ok := m.rubrics[id]
	if !ok {
		return models.Rubric{}, gorm.ErrRecordNotFound
	}
	return rubric, nil
}

func (m *memoryRubricRepo) Create(ctx context.Context, rubric *models.Rubric) error {
	rubric.ID = m.nextID
	m.rubrics[m.nextID] = *rubric
	m.nextID++
	return nil
}

func (m *memoryRubricRepo) CreateBatch(ctx context.Context, rubrics []models.Rubric) error {
	for i := range rubrics {
		if err := m.Create(ctx, &rubrics[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryRubricRepo) Update(ctx context.Context, rubric *models.Rubric) error {
	if _, ok := m.rubrics[rubric.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.rubrics[rubric.ID] = *rubric
	return nil
}

func (m *memoryRubricRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.rubrics[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rubrics, id)
	return nil
}

type memorySubmissionRepo struct {
	submissions map[uint]models.Submission
	answers     *memoryAnswerRepo
	nextID      uint
}

func newMemorySubmissionRepo(answers *memoryAnswerRepo) *memorySubmissionRepo {
	return &memorySubmissionRepo{submissions: make(map[uint]models.Submission), answers: answers, nextID: 1}
}

func (m *memorySubmissionRepo) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	results := make([]models.Submission, 0)
	for _, submission := range m.submissions {
		if submission.AssignmentID == assignmentID {
			results = append(results, submission)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memorySubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	submission, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (m *memorySubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	submission.ID = m.nextID
	submission.CreatedAt = time.Now()
	m.submissions[m.nextID] = *submission
	m.nextID++
	return nil
}

func (m *memorySubmissionRepo) Update(ctx context.Context, submission *models.Submission) error {
	if _, ok := m.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.submissions[submission.ID] = *submission
	return nil
}

func (m *memorySubmissionRepo) DeleteWithAnswers(ctx context.Context, id uint) error {
	if _, ok := m.submissions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.submissions, id)
	if m.answers != nil {
		for answerID, answer := range m.answers.answers {
			if answer.SubmissionID == id {
				delete(m.answers.answers, answerID)
			}
		}
	}
	return nil
}

type memoryAnswerRepo struct {
	answers map[uint]models.Answer
	nextID  uint
}

func newMemoryAnswerRepo() *memoryAnswerRepo {
	return &memoryAnswerRepo{answers: make(map[uint]models.Answer), nextID: 1}
}

func (m *memoryAnswerRepo) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Answer, error) {
	results := make([]models.Answer, 0)
	for _, answer := range m.answers {
		if answer.SubmissionID == submissionID {
			results = append(results, answer)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].QuestionID < results[j].QuestionID })
	return results, nil
}

func (m *memoryAnswerRepo) ListByQuestion(ctx context.Context, questionID uint) ([]models.Answer, error) {
	results := make([]models.Answer, 0)
	for _, answer := range m.answers {
		if answer.QuestionID == questionID {
			results = append(results, answer)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memoryAnswerRepo) GetByID(ctx context.Context, id uint) (models.Answer, error) {
	answer, ok := m.answers[id]
	if !ok {
		return models.Answer{}, gorm.ErrRecordNotFound
	}
	return answer, nil
}

func (m *memoryAnswerRepo) Create(ctx context.Context, answer *models.Answer) error {
	answer.ID = m.nextID
	m.answers[m.nextID] = *answer
	m.nextID++
	return nil
}

func (m *memoryAnswerRepo) CreateBatch(ctx context.Context, answers []models.Answer) error {
	for i := range answers {
		if err := m.Create(ctx, &answers[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryAnswerRepo) Update(ctx context.Context, answer *models.Answer) error {
	if _, ok := m.answers[answer.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.answers[answer.ID] = *answer
	return nil
}

func (m *memoryAnswerRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.answers[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.answers, id)
	return nil
}

type memoryAgentRepo struct {
	agents map[uint]models.GradingAgent
	nextID uint
}

func newMemoryAgentRepo() *memoryAgentRepo {
	return &memoryAgentRepo{agents: make(map[uint]models.GradingAgent), nextID: 1}
}

func (m *memoryAgentRepo) ListByQuestion(ctx context.Context, questionID uint) ([]models.GradingAgent, error) {
	results := make([]models.GradingAgent, 0)
	for _, agent := range m.agents {
		if agent.QuestionID == questionID {
			results = append(results, agent)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

func (m *memoryAgentRepo) GetByID(ctx context.Context, id uint) (models.GradingAgent, error) {
	agent, ok := m.agents[id]
	if !ok {
		return models.GradingAgent{}, gorm.ErrRecordNotFound
	}
	return agent, nil
}

func (m *memoryAgentRepo) Create(ctx context.Context, agent *models.GradingAgent) error {
	for _, existing := range m.agents {
		if existing.QuestionID == agent.QuestionID && existing.Name == agent.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	agent.ID = m.nextID
	m.agents[m.nextID] = *agent
	m.nextID++
	return nil
}

func (m *memoryAgentRepo) Update(ctx context.Context, agent *models.GradingAgent) error {
	if _, ok := m.agents[agent.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.agents[agent.ID] = *agent
	return nil
}

func (m *memoryAgentRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.agents[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.agents, id)
	return nil
}

type memorySettingsRepo struct {
	settings *models.Settings
	creates  int
}

func (m *memorySettingsRepo) Ensure(ctx context.Context, defaults models.Settings) (models.Settings, error) {
	if m.settings == nil {
		defaults.ID = 1
		m.settings = &defaults
		m.creates++
	}
	return *m.settings, nil
}

func (m *memorySettingsRepo) Update(ctx context.Context, settings *models.Settings) error {
	m.settings = settings
	return nil
}

type memoryBatchRepo struct {
	mu      sync.Mutex
	batches map[uint]models.UploadBatch
	nextID  uint
}

func newMemoryBatchRepo() *memoryBatchRepo {
	return &memoryBatchRepo{batches: make(map[uint]models.UploadBatch), nextID: 1}
}

func (m *memoryBatchRepo) Create(ctx context.Context, batch *models.UploadBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch.ID = m.nextID
	m.batches[m.nextID] = *batch
	m.nextID++
	return nil
}

func (m *memoryBatchRepo) GetByID(ctx context.Context, id uint) (models.UploadBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[id]
	if !ok {
		return models.UploadBatch{}, gorm.ErrRecordNotFound
	}
	return batch, nil
}

func (m *memoryBatchRepo) RecordResult(ctx context.Context, id uint, failed bool) (models.UploadBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[id]
	if !ok {
		return models.UploadBatch{}, gorm.ErrRecordNotFound
	}
	if failed {
		batch.FailedFiles++
	} else {
		batch.ProcessedFiles++
	}
	if batch.IsFinished() {
		batch.Status = models.BatchStatusCompleted
	}
	m.batches[id] = batch
	return batch, nil
}

// stubGrader returns canned model responses and records the inputs it saw.
type stubGrader struct {
	suggestions   []ai.Suggestion
	suggestErr    error
	suggestInputs []ai.SuggestionInput

	mapped    []ai.MappedAnswer
	mapErr    error
	mapCalls  int
	mapInputs []ai.MappingInput

	extracted    []ai.ExtractedQuestion
	generated    []ai.GeneratedRubric
	generatedErr error
	visionText   string
}

func (s *stubGrader) SuggestEvaluations(ctx context.Context, input ai.SuggestionInput) ([]ai.Suggestion, error) {
	s.suggestInputs = append(s.suggestInputs, input)
	return s.suggestions, s.suggestErr
}

func (s *stubGrader) GenerateRubrics(ctx context.Context, input ai.RubricGenerationInput) ([]ai.GeneratedRubric, error) {
	return s.generated, s.generatedErr
}

func (s *stubGrader) ExtractQuestions(ctx context.Context, input ai.ExtractionInput) ([]ai.ExtractedQuestion, error) {
	return s.extracted, nil
}

func (s *stubGrader) ExtractText(ctx context.Context, input ai.VisionInput) (string, error) {
	return s.visionText, nil
}

func (s *stubGrader) MapAnswers(ctx context.Context, input ai.MappingInput) ([]ai.MappedAnswer, error) {
	s.mapCalls++
	s.mapInputs = append(s.mapInputs, input)
	return s.mapped, s.mapErr
}

// recordingPublisher captures events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Subject string
	Payload interface{}
}

func (r *recordingPublisher) Publish(subject string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Subject: subject, Payload: payload})
}

func (r *recordingPublisher) subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	subjects := make([]string, 0, len(r.events))
	for _, event := range r.events {
		subjects = append(subjects, event.Subject)
	}
	return subjects
}
