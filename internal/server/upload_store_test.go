package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-chat-analyzer/internal/domain"
)

func TestUploadStore(t *testing.T) {
	t.Run("NewUploadStore", func(t *testing.T) {
		us := NewUploadStore()
		assert.NotNil(t, us)
		assert.NotNil(t, us.uploads)
	})

	t.Run("CreateAndGetUpload", func(t *testing.T) {
		us := NewUploadStore()
		uploadID := "upload-1"
		ttl := 5 * time.Minute

		us.CreateUpload(uploadID, ttl)

		upload, err := us.GetUpload(uploadID)
		require.NoError(t, err)

		assert.Equal(t, uploadID, upload.ID)
		assert.Equal(t, UploadStatusPending, upload.Status)
		assert.WithinDuration(t, time.Now().Add(ttl), upload.ExpiresAt, time.Second)
	})

	t.Run("GetNonExistentUpload", func(t *testing.T) {
		us := NewUploadStore()
		_, err := us.GetUpload("non-existent")
		assert.Error(t, err)
	})

	t.Run("UpdateUploadStatus", func(t *testing.T) {
		us := NewUploadStore()
		uploadID := "upload-1"
		us.CreateUpload(uploadID, time.Minute)

		err := us.UpdateUploadStatus(uploadID, UploadStatusProcessing)
		require.NoError(t, err)

		upload, _ := us.GetUpload(uploadID)
		assert.Equal(t, UploadStatusProcessing, upload.Status)

		err = us.UpdateUploadStatus("non-existent", UploadStatusCompleted)
		assert.Error(t, err)
	})

	t.Run("CompleteUpload", func(t *testing.T) {
		us := NewUploadStore()
		uploadID := "upload-1"
		us.CreateUpload(uploadID, time.Minute)

		meta := &domain.ChatMetadata{FileName: "chat.txt", TotalCount: 42}
		err := us.CompleteUpload(uploadID, "chat-1", meta)
		require.NoError(t, err)

		upload, _ := us.GetUpload(uploadID)
		assert.Equal(t, UploadStatusCompleted, upload.Status)
		assert.Equal(t, "chat-1", upload.ChatID)
		assert.Equal(t, meta, upload.Metadata)

		err = us.CompleteUpload("non-existent", "", nil)
		assert.Error(t, err)
	})

	t.Run("FailUpload", func(t *testing.T) {
		us := NewUploadStore()
		uploadID := "upload-1"
		us.CreateUpload(uploadID, time.Minute)

		errMsg := "файл не является экспортом чата"
		err := us.FailUpload(uploadID, errMsg)
		require.NoError(t, err)

		upload, _ := us.GetUpload(uploadID)
		assert.Equal(t, UploadStatusFailed, upload.Status)
		assert.Equal(t, errMsg, upload.ErrorMessage)

		err = us.FailUpload("non-existent", "")
		assert.Error(t, err)
	})

	t.Run("CleanupExpired", func(t *testing.T) {
		us := NewUploadStore()
		expiredID := "expired"
		validID := "valid"

		us.CreateUpload(expiredID, -1*time.Minute) // expired
		us.CreateUpload(validID, 1*time.Minute)    // valid

		us.CleanupExpired()

		_, err := us.GetUpload(expiredID)
		assert.Error(t, err, "Expired upload should be deleted")

		_, err = us.GetUpload(validID)
		assert.NoError(t, err, "Valid upload should not be deleted")
	})
}

// TestUploadStore_ConcurrentStatusReads закрепляет, что GetUpload отдает
// согласованный снимок: опрашивающий никогда не видит статус completed без
// идентификатора чата, пока горутина обработки изменяет задачу.
func TestUploadStore_ConcurrentStatusReads(t *testing.T) {
	us := NewUploadStore()
	uploadID := "upload-1"
	us.CreateUpload(uploadID, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = us.UpdateUploadStatus(uploadID, UploadStatusProcessing)
		meta := &domain.ChatMetadata{FileName: "chat.txt", TotalCount: 1}
		_ = us.CompleteUpload(uploadID, "chat-1", meta)
	}()

	for {
		upload, err := us.GetUpload(uploadID)
		require.NoError(t, err)
		if upload.Status == UploadStatusCompleted {
			assert.Equal(t, "chat-1", upload.ChatID,
				"завершенный снимок несет идентификатор чата")
			require.NotNil(t, upload.Metadata)
			break
		}
		assert.Empty(t, upload.ChatID, "до завершения идентификатор чата пуст")
	}
	<-done
}

func TestUploadStore_StartCleanupTicker(t *testing.T) {
	us := NewUploadStore()
	expiredID := "expired"
	us.CreateUpload(expiredID, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	us.StartCleanupTicker(ctx, 100*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := us.GetUpload(expiredID)
		return err != nil
	}, time.Second, 20*time.Millisecond)
}
