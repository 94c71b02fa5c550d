package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks straddle-lab/internal/series Provider
//go:generate mockgen -destination=./mock_resolver.go -package=mocks straddle-lab/internal/instrument Resolver
//go:generate mockgen -destination=./mock_cycle_store.go -package=mocks straddle-lab/internal/storage CycleStore
