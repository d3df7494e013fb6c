// Package mocks provides gomock mocks of the auth ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	backend := mocks.NewMockAuthBackend(ctrl)
//	backend.EXPECT().Me(gomock.Any()).Return(identity, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=auth_backend_mock.go github.com/fixzone/fixzone-portal/internal/ports AuthBackend
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=state_storage_mock.go github.com/fixzone/fixzone-portal/internal/ports StateStorage
