package telegram

import (
	"sync"
	"time"
)

const debounce = 1200 * time.Millisecond

// chatState tracks per-chat settings and the single conversion allowed in
// flight for each chat.
type chatState struct {
	inflight sync.Map // chatID -> struct{}
	models   sync.Map // chatID -> string
	batches  sync.Map // key -> *photoBatch
}

func newChatState() *chatState { return &chatState{} }

// begin reports false when the chat already has a conversion running.
func (s *chatState) begin(chatID int64) bool {
	_, busy := s.inflight.LoadOrStore(chatID, struct{}{})
	return !busy
}

func (s *chatState) end(chatID int64) { s.inflight.Delete(chatID) }

func (s *chatState) setModel(chatID int64, model string) {
	if model == "" {
		s.models.Delete(chatID)
		return
	}
	s.models.Store(chatID, model)
}

func (s *chatState) model(chatID int64) string {
	if v, ok := s.models.Load(chatID); ok {
		if m, _ := v.(string); m != "" {
			return m
		}
	}
	return ""
}

type photoBatch struct {
	ChatID       int64
	Key          string // "grp:<mediaGroupID>" | "chat:<chatID>"
	MediaGroupID string

	mu     sync.Mutex
	images [][]byte
	mimes  []string
	timer  *time.Timer
}
