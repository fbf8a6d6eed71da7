package mocks

//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/quantdesk-lab/quantdesk/internal/store Store
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/quantdesk-lab/quantdesk/pkg/marketdata/provider Provider
