package parking

import (
	"context"
	"sync"
)

// SyncService serializes writers and lets readers share the lot.
type SyncService struct {
	next UseCase
	mu   sync.RWMutex
}

var _ UseCase = (*SyncService)(nil)

func NewSyncService(next UseCase) *SyncService {
	return &SyncService{next: next}
}

func (s *SyncService) CreateParkingLot(ctx context.Context, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.CreateParkingLot(ctx, capacity)
}

func (s *SyncService) Park(ctx context.Context, registrationNumber, color, vehicleType string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Park(ctx, registrationNumber, color, vehicleType)
}

func (s *SyncService) Leave(ctx context.Context, slotNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Leave(ctx, slotNumber)
}

func (s *SyncService) Report(ctx context.Context) Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next.Report(ctx)
}

func (s *SyncService) Slots(ctx context.Context) []Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next.Slots(ctx)
}

func (s *SyncService) RegistrationsByColor(ctx context.Context, color string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next.RegistrationsByColor(ctx, color)
}

func (s *SyncService) SlotsByColor(ctx context.Context, color string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next.SlotsByColor(ctx, color)
}

func (s *SyncService) SlotForRegistration(ctx context.Context, registrationNumber string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next.SlotForRegistration(ctx, registrationNumber)
}
