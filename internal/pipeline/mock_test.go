package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/vcms/internal/model"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetMediaAsset(ctx context.Context, mediaID string) (*model.MediaAsset, error) {
	args := m.Called(ctx, mediaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MediaAsset), args.Error(1)
}

func (m *mockStore) UpsertMediaAsset(ctx context.Context, asset *model.MediaAsset) error {
	return m.Called(ctx, asset).Error(0)
}

func (m *mockStore) MarkMediaProcessed(ctx context.Context, mediaID, vendorID string) error {
	return m.Called(ctx, mediaID, vendorID).Error(0)
}

func (m *mockStore) ImportMediaAssets(ctx context.Context, assets []model.MediaAsset) (int64, error) {
	args := m.Called(ctx, assets)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) CreateVendorProfile(ctx context.Context, p *model.VendorProfile) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *mockStore) CommitVendor(ctx context.Context, p *model.VendorProfile) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *mockStore) GetVendorProfile(ctx context.Context, vendorID string) (*model.VendorProfile, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VendorProfile), args.Error(1)
}

func (m *mockStore) GetVendorByMedia(ctx context.Context, mediaID string) (*model.VendorProfile, error) {
	args := m.Called(ctx, mediaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VendorProfile), args.Error(1)
}

func (m *mockStore) ListVendorProfiles(ctx context.Context, filter model.VendorFilter) ([]model.VendorProfile, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.VendorProfile), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Extraction Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, imageURL string) (*model.ExtractionCandidate, error) {
	args := m.Called(ctx, imageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExtractionCandidate), args.Error(1)
}
