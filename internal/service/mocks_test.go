package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tekstlab/interlink/internal/domain"
)

// MockContentSource is a mock implementation of ContentSource
type MockContentSource struct {
	mock.Mock
}

func (m *MockContentSource) ListCandidateDocuments(ctx context.Context, limit, offset int) ([]domain.DocumentRef, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentRef), args.Error(1)
}

func (m *MockContentSource) GetContent(ctx context.Context, id int64) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockContentSource) ResolvePermalink(ctx context.Context, id int64) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// MockEmbeddingProvider is a mock implementation of EmbeddingProvider
type MockEmbeddingProvider struct {
	mock.Mock
}

func (m *MockEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockEmbeddingRepository is a mock implementation of EmbeddingRepository
type MockEmbeddingRepository struct {
	mock.Mock
}

func (m *MockEmbeddingRepository) OwnerHash(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}

func (m *MockEmbeddingRepository) ReplaceOwner(ctx context.Context, ownerID string, embeddings []domain.Embedding) error {
	args := m.Called(ctx, ownerID, embeddings)
	return args.Error(0)
}

func (m *MockEmbeddingRepository) DocumentIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockEmbeddingRepository) BodyChunks(ctx context.Context, ownerID string) ([]domain.Embedding, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Embedding), args.Error(1)
}

func (m *MockEmbeddingRepository) DocumentTargets(ctx context.Context) ([]domain.DocumentTarget, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentTarget), args.Error(1)
}

// MockCustomTargetRepository is a mock implementation of CustomTargetRepository
type MockCustomTargetRepository struct {
	mock.Mock
}

func (m *MockCustomTargetRepository) List(ctx context.Context) ([]domain.CustomTarget, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CustomTarget), args.Error(1)
}

// MockLinkRepository is a mock implementation of LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Insert(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkRepository) HasActive(ctx context.Context, sourceID int64, targetURL string) (bool, error) {
	args := m.Called(ctx, sourceID, targetURL)
	return args.Bool(0), args.Error(1)
}

func (m *MockLinkRepository) CountActiveBySource(ctx context.Context, sourceID int64) (int, error) {
	args := m.Called(ctx, sourceID)
	return args.Int(0), args.Error(1)
}

func (m *MockLinkRepository) CountActiveByURL(ctx context.Context, targetURL string) (int, error) {
	args := m.Called(ctx, targetURL)
	return args.Int(0), args.Error(1)
}

func (m *MockLinkRepository) ActiveAnchors(ctx context.Context) ([]ActiveAnchor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ActiveAnchor), args.Error(1)
}

func (m *MockLinkRepository) ActiveAnchorTexts(ctx context.Context, sourceID int64) (map[string]string, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// MockBlacklistRepository is a mock implementation of BlacklistRepository
type MockBlacklistRepository struct {
	mock.Mock
}

func (m *MockBlacklistRepository) Contains(ctx context.Context, sourceID int64, targetURL string) (bool, error) {
	args := m.Called(ctx, sourceID, targetURL)
	return args.Bool(0), args.Error(1)
}

// MockRunRepository is a mock implementation of RunRepository
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Record(ctx context.Context, report RunReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockRunRepository) Latest(ctx context.Context) (*RunReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RunReport), args.Error(1)
}

// MockReportUploader is a mock implementation of ReportUploader
type MockReportUploader struct {
	mock.Mock
}

func (m *MockReportUploader) UploadReport(ctx context.Context, key string, body []byte) error {
	args := m.Called(ctx, key, body)
	return args.Error(0)
}
