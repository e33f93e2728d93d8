package service

import (
	"fmt"
	"strings"
	"sync"

	"duoleg/internal/domain/model"
)

// SymbolService holds the instrument the UI currently operates on. The
// supported set is advisory for the UI; any well-formed pair may be set,
// the futures venue enforces its own instrument allowlist on order lookups.
type SymbolService struct {
	mu      sync.RWMutex
	current string
	ordered []string
}

func NewSymbolService(def string, supported []string) *SymbolService {
	s := &SymbolService{current: strings.ToUpper(def)}
	for _, sym := range supported {
		s.ordered = append(s.ordered, strings.ToUpper(sym))
	}
	return s
}

func (s *SymbolService) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *SymbolService) Supported() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Set switches the current instrument. The symbol must be BASE_QUOTE.
func (s *SymbolService) Set(symbol string) error {
	u := strings.ToUpper(strings.TrimSpace(symbol))
	if !model.ValidSymbol(u) {
		return fmt.Errorf("%w: %q", model.ErrInvalidSymbol, symbol)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = u
	return nil
}
