package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whatsapp-chat-analyzer/internal/filter"
)

// ChatSession представляет один загруженный чат: его хранилище фильтров
// живет, пока жива сессия, и заменяется целиком при новой загрузке.
type ChatSession struct {
	ID        string
	Store     *filter.Store
	FileName  string
	CreatedAt time.Time
	ExpiresAt time.Time // Для автоматической очистки
}

// SessionStore управляет хранением и извлечением сессий загруженных чатов
type SessionStore struct {
	sessions map[string]*ChatSession
	mutex    sync.RWMutex
}

// NewSessionStore создает новый экземпляр SessionStore
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*ChatSession),
	}
}

// CreateSession регистрирует сессию для загруженного чата
func (ss *SessionStore) CreateSession(sessionID, fileName string, store *filter.Store, ttl time.Duration) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	now := time.Now()
	ss.sessions[sessionID] = &ChatSession{
		ID:        sessionID,
		Store:     store,
		FileName:  fileName,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// GetSession извлекает сессию по ее ID
func (ss *SessionStore) GetSession(sessionID string) (*ChatSession, error) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	session, exists := ss.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("сессия с ID %s не найдена", sessionID)
	}

	return session, nil
}

// DeleteSession удаляет сессию (событие удаления файла) и очищает
// ее хранилище фильтров.
func (ss *SessionStore) DeleteSession(sessionID string) error {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	session, exists := ss.sessions[sessionID]
	if !exists {
		return fmt.Errorf("сессия с ID %s не найдена", sessionID)
	}

	session.Store.Clear()
	delete(ss.sessions, sessionID)
	return nil
}

// CleanupExpired удаляет просроченные сессии из хранилища
func (ss *SessionStore) CleanupExpired() {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	now := time.Now()
	for sessionID, session := range ss.sessions {
		if now.After(session.ExpiresAt) {
			session.Store.Clear()
			delete(ss.sessions, sessionID)
		}
	}
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных сессий
func (ss *SessionStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ss.CleanupExpired()
			}
		}
	}()
}
