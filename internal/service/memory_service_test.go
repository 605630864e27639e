package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/repository"
)

type fakeMemoryRepo struct {
	created      []domain.MemoryEntry
	searchParams *repository.SearchParams
	searchResult []domain.ScoredMemory
	maxSim       float64
	deleted      int64
}

func (f *fakeMemoryRepo) Create(ctx context.Context, memory domain.MemoryEntry) error {
	f.created = append(f.created, memory)
	return nil
}

func (f *fakeMemoryRepo) Search(ctx context.Context, params repository.SearchParams) ([]domain.ScoredMemory, error) {
	f.searchParams = &params
	return f.searchResult, nil
}

func (f *fakeMemoryRepo) MaxSimilarity(ctx context.Context, userID, personaID uuid.UUID, kind string, embedding pgvector.Vector) (float64, error) {
	return f.maxSim, nil
}

func (f *fakeMemoryRepo) DeleteByConversation(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	return f.deleted, nil
}

type fakeConversationRepo struct {
	conversations map[uuid.UUID]domain.Conversation
	summaries     map[uuid.UUID]string
	personaSet    map[uuid.UUID]uuid.UUID
	touched       int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[uuid.UUID]domain.Conversation),
		summaries:     make(map[uuid.UUID]string),
		personaSet:    make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeConversationRepo) Create(ctx context.Context, conversation domain.Conversation) error {
	f.conversations[conversation.ID] = conversation
	return nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeConversationRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	var out []domain.Conversation
	for _, c := range f.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) SetPersona(ctx context.Context, id, personaID uuid.UUID, updatedAt time.Time) error {
	c, ok := f.conversations[id]
	if ok && c.PersonaID == nil {
		c.PersonaID = &personaID
		f.conversations[id] = c
	}
	f.personaSet[id] = personaID
	return nil
}

func (f *fakeConversationRepo) UpdateSummary(ctx context.Context, id uuid.UUID, summary string, updatedAt time.Time) error {
	f.summaries[id] = summary
	if c, ok := f.conversations[id]; ok {
		c.LastSummary = summary
		f.conversations[id] = c
	}
	return nil
}

func (f *fakeConversationRepo) Touch(ctx context.Context, id uuid.UUID, updatedAt time.Time) error {
	f.touched++
	return nil
}

type fakeMemoryLLM struct {
	embed         []float32
	generateResp  string
	generateErr   error
	embedCalls    int
	generateCalls int
	lastPrompt    string
}

func (f *fakeMemoryLLM) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls++
	return f.embed, nil
}

func (f *fakeMemoryLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.generateCalls++
	f.lastPrompt = prompt
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.generateResp, nil
}

func newMemoryService(repo *fakeMemoryRepo, convs *fakeConversationRepo, mock *fakeMemoryLLM) *MemoryService {
	return NewMemoryService(repo, convs, mock, mock, MemoryParams{})
}

func TestRetrieveEmptyQuerySkipsSearch(t *testing.T) {
	repo := &fakeMemoryRepo{}
	mock := &fakeMemoryLLM{embed: []float32{0.1, 0.2}}
	svc := newMemoryService(repo, newFakeConversationRepo(), mock)

	results, err := svc.Retrieve(context.Background(), uuid.New(), uuid.New(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
	if mock.embedCalls != 0 {
		t.Fatalf("expected no embedding calls, got %d", mock.embedCalls)
	}
}

func TestRetrieveScopesAndWeights(t *testing.T) {
	repo := &fakeMemoryRepo{
		searchResult: []domain.ScoredMemory{
			{MemoryEntry: domain.MemoryEntry{Content: "I live in Lisbon"}, Similarity: 0.9, Score: 0.81},
		},
	}
	mock := &fakeMemoryLLM{embed: []float32{0.1, 0.2, 0.3}}
	svc := newMemoryService(repo, newFakeConversationRepo(), mock)

	userID := uuid.New()
	personaID := uuid.New()
	results, err := svc.Retrieve(context.Background(), userID, personaID, "where do i live?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	p := repo.searchParams
	if p == nil {
		t.Fatal("expected search to run")
	}
	if p.UserID != userID || p.PersonaID != personaID {
		t.Fatalf("expected scope (%s, %s), got (%s, %s)", userID, personaID, p.UserID, p.PersonaID)
	}
	if p.K != 5 || p.MinSimilarity != 0.15 || p.SimilarityWeight != 0.7 || p.ImportanceWeight != 0.3 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestExtractAndStorePersistsCandidates(t *testing.T) {
	repo := &fakeMemoryRepo{maxSim: 0.10}
	mock := &fakeMemoryLLM{
		embed: []float32{0.5, 0.5},
		generateResp: "```json\n" + `{"memories": [
			{"kind": "fact", "content": "I work as a nurse", "importance": 0.7},
			{"kind": "preference", "content": "I prefer short answers", "importance": 0.4}
		]}` + "\n```",
	}
	svc := newMemoryService(repo, newFakeConversationRepo(), mock)

	convID := uuid.New()
	userID := uuid.New()
	personaID := uuid.New()
	stored, err := svc.ExtractAndStore(context.Background(), convID, userID, personaID, "i work as a nurse btw", "That sounds demanding!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != 2 {
		t.Fatalf("expected 2 stored, got %d", stored)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected 2 created rows, got %d", len(repo.created))
	}

	first := repo.created[0]
	if first.Kind != domain.MemoryKindFact || first.Content != "I work as a nurse" {
		t.Fatalf("unexpected first memory: %+v", first)
	}
	if first.UserID != userID || first.PersonaID != personaID || first.ConversationID != convID {
		t.Fatalf("expected scoped ids on stored memory, got %+v", first)
	}
	if first.Importance != 0.7 {
		t.Fatalf("expected importance 0.7, got %v", first.Importance)
	}
	if !strings.Contains(mock.lastPrompt, "i work as a nurse btw") {
		t.Fatal("expected user message inside extraction prompt")
	}
}

func TestExtractAndStoreDedupsNearDuplicates(t *testing.T) {
	repo := &fakeMemoryRepo{maxSim: 0.95}
	mock := &fakeMemoryLLM{
		embed:        []float32{0.5, 0.5},
		generateResp: `{"memories": [{"kind": "fact", "content": "I work as a nurse", "importance": 0.7}]}`,
	}
	svc := newMemoryService(repo, newFakeConversationRepo(), mock)

	stored, err := svc.ExtractAndStore(context.Background(), uuid.New(), uuid.New(), uuid.New(), "msg", "resp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != 0 {
		t.Fatalf("expected 0 stored, got %d", stored)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no created rows, got %d", len(repo.created))
	}
}

func TestExtractAndStoreSkipsInvalidCandidates(t *testing.T) {
	repo := &fakeMemoryRepo{maxSim: 0.0}
	mock := &fakeMemoryLLM{
		embed: []float32{0.5, 0.5},
		generateResp: `{"memories": [
			{"kind": "opinion", "content": "I think cats are great", "importance": 0.5},
			{"kind": "event", "content": "", "importance": 0.5},
			{"kind": "EVENT", "content": "I moved to Lisbon", "importance": 1.5}
		]}`,
	}
	svc := newMemoryService(repo, newFakeConversationRepo(), mock)

	stored, err := svc.ExtractAndStore(context.Background(), uuid.New(), uuid.New(), uuid.New(), "msg", "resp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != 1 {
		t.Fatalf("expected 1 stored, got %d", stored)
	}
	entry := repo.created[0]
	if entry.Kind != domain.MemoryKindEvent {
		t.Fatalf("expected normalized kind event, got %q", entry.Kind)
	}
	if entry.Importance != 1.0 {
		t.Fatalf("expected importance clamped to 1.0, got %v", entry.Importance)
	}
}

func TestExtractAndStoreEmptyList(t *testing.T) {
	repo := &fakeMemoryRepo{}
	mock := &fakeMemoryLLM{generateResp: `{"memories": []}`}
	svc := newMemoryService(repo, newFakeConversationRepo(), mock)

	stored, err := svc.ExtractAndStore(context.Background(), uuid.New(), uuid.New(), uuid.New(), "hi", "hello!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != 0 || mock.embedCalls != 0 {
		t.Fatalf("expected nothing stored or embedded, got stored=%d embeds=%d", stored, mock.embedCalls)
	}
}

func TestExtractAndStoreParseFailure(t *testing.T) {
	repo := &fakeMemoryRepo{}
	mock := &fakeMemoryLLM{generateResp: "sorry, I cannot do that"}
	svc := newMemoryService(repo, newFakeConversationRepo(), mock)

	_, err := svc.ExtractAndStore(context.Background(), uuid.New(), uuid.New(), uuid.New(), "msg", "resp")
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFoldSummaryGeneratesAndPersists(t *testing.T) {
	convs := newFakeConversationRepo()
	mock := &fakeMemoryLLM{generateResp: "  The user moved to Lisbon and started a hospital job.  "}
	svc := newMemoryService(&fakeMemoryRepo{}, convs, mock)

	convID := uuid.New()
	evicted := []domain.Message{
		{Role: domain.RoleUser, Content: "i moved to lisbon"},
		{Role: domain.RoleAssistant, Content: "How exciting!"},
	}
	summary, err := svc.FoldSummary(context.Background(), convID, "The user was job hunting.", evicted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "The user moved to Lisbon and started a hospital job." {
		t.Fatalf("unexpected summary: %q", summary)
	}
	if convs.summaries[convID] != summary {
		t.Fatalf("expected summary persisted, got %q", convs.summaries[convID])
	}
	if !strings.Contains(mock.lastPrompt, "user: i moved to lisbon") {
		t.Fatal("expected evicted turns inside prompt")
	}
	if !strings.Contains(mock.lastPrompt, "The user was job hunting.") {
		t.Fatal("expected previous summary inside prompt")
	}
}

func TestFoldSummaryNoEvictedIsNoop(t *testing.T) {
	mock := &fakeMemoryLLM{}
	svc := newMemoryService(&fakeMemoryRepo{}, newFakeConversationRepo(), mock)

	summary, err := svc.FoldSummary(context.Background(), uuid.New(), "previous", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "previous" || mock.generateCalls != 0 {
		t.Fatalf("expected untouched summary, got %q with %d generate calls", summary, mock.generateCalls)
	}
}

func TestForgetDelegates(t *testing.T) {
	repo := &fakeMemoryRepo{deleted: 3}
	svc := newMemoryService(repo, newFakeConversationRepo(), &fakeMemoryLLM{})

	deleted, err := svc.Forget(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}
}
