// Package mocks provides gomock mocks for the account and session ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	profiles := mocks.NewMockProfileStore(ctrl)
//	profiles.EXPECT().ReadProfile(gomock.Any(), "uid-1").Return(nil, nil)
package mocks

// ReadProfile, WriteProfile, UpdateProfile
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_store_mock.go github.com/rejoiceinstitute/rejoice-web/internal/ports ProfileStore

// Get, Set, Remove
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=local_cache_mock.go github.com/rejoiceinstitute/rejoice-web/internal/ports LocalCache
