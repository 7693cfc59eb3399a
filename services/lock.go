package services

import "sync"

// TournamentLock — единственная точка сериализации для всех операций,
// которые читают и меняют лимит, статусы заявок, стадию или сетку:
// Submit, Moderate (включая авто-старт), Start, Reset и перегенерация сетки
// держат один и тот же лок. Внешний I/O под локом не выполняется.
type TournamentLock struct {
	mu sync.Mutex
}

func NewTournamentLock() *TournamentLock {
	return &TournamentLock{}
}

func (l *TournamentLock) Lock()   { l.mu.Lock() }
func (l *TournamentLock) Unlock() { l.mu.Unlock() }
