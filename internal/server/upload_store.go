package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whatsapp-chat-analyzer/internal/domain"
)

// UploadStatus представляет статус задачи загрузки
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

// Upload представляет собой одну задачу обработки загруженного экспорта.
// Опрос ее статуса — это индикатор выполнения для интерфейса, а готовый
// результат (идентификатор чата и метаданные) — второй канал ответа.
type Upload struct {
	ID           string
	Status       UploadStatus
	ChatID       string
	Metadata     *domain.ChatMetadata
	ErrorMessage string
	CreatedAt    time.Time
	ExpiresAt    time.Time // Для автоматической очистки
}

// UploadStore управляет хранением и извлечением задач загрузки
type UploadStore struct {
	uploads map[string]*Upload
	mutex   sync.RWMutex
}

// NewUploadStore создает новый экземпляр UploadStore
func NewUploadStore() *UploadStore {
	return &UploadStore{
		uploads: make(map[string]*Upload),
	}
}

// CreateUpload создает новую задачу со статусом 'pending'
func (us *UploadStore) CreateUpload(uploadID string, ttl time.Duration) {
	us.mutex.Lock()
	defer us.mutex.Unlock()

	now := time.Now()
	us.uploads[uploadID] = &Upload{
		ID:        uploadID,
		Status:    UploadStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// UpdateUploadStatus обновляет статус задачи
func (us *UploadStore) UpdateUploadStatus(uploadID string, status UploadStatus) error {
	us.mutex.Lock()
	defer us.mutex.Unlock()

	upload, exists := us.uploads[uploadID]
	if !exists {
		return fmt.Errorf("загрузка с ID %s не найдена", uploadID)
	}

	upload.Status = status
	return nil
}

// CompleteUpload записывает результат и переводит задачу в 'completed'
func (us *UploadStore) CompleteUpload(uploadID, chatID string, meta *domain.ChatMetadata) error {
	us.mutex.Lock()
	defer us.mutex.Unlock()

	upload, exists := us.uploads[uploadID]
	if !exists {
		return fmt.Errorf("загрузка с ID %s не найдена", uploadID)
	}

	upload.Status = UploadStatusCompleted
	upload.ChatID = chatID
	upload.Metadata = meta
	return nil
}

// FailUpload записывает сообщение об ошибке и переводит задачу в 'failed'
func (us *UploadStore) FailUpload(uploadID, errorMessage string) error {
	us.mutex.Lock()
	defer us.mutex.Unlock()

	upload, exists := us.uploads[uploadID]
	if !exists {
		return fmt.Errorf("загрузка с ID %s не найдена", uploadID)
	}

	upload.Status = UploadStatusFailed
	upload.ErrorMessage = errorMessage
	return nil
}

// GetUpload извлекает снимок задачи по ее ID. Возвращается копия значения:
// живой указатель отдавать нельзя, потому что горутина обработки продолжает
// изменять задачу, пока опрашивающие читают ее поля без блокировки.
func (us *UploadStore) GetUpload(uploadID string) (Upload, error) {
	us.mutex.RLock()
	defer us.mutex.RUnlock()

	upload, exists := us.uploads[uploadID]
	if !exists {
		return Upload{}, fmt.Errorf("загрузка с ID %s не найдена", uploadID)
	}

	return *upload, nil
}

// CleanupExpired удаляет просроченные задачи из хранилища
func (us *UploadStore) CleanupExpired() {
	us.mutex.Lock()
	defer us.mutex.Unlock()

	now := time.Now()
	for uploadID, upload := range us.uploads {
		if now.After(upload.ExpiresAt) {
			delete(us.uploads, uploadID)
		}
	}
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных задач
func (us *UploadStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				us.CleanupExpired()
			}
		}
	}()
}
