package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"whatsapp-chat-analyzer/internal/adapters/exporter"
	"whatsapp-chat-analyzer/internal/domain"
)

type uploadStatusResponse struct {
	UploadID     string               `json:"upload_id"`
	Status       string               `json:"status"`
	ChatID       string               `json:"chat_id"`
	Metadata     *domain.ChatMetadata `json:"metadata"`
	ErrorMessage string               `json:"error_message"`
}

type messagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	UsedCount  int              `json:"used_count"`
	TotalCount int              `json:"total_count"`
}

func main() {
	var serverAddr string
	var pollInterval time.Duration
	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "Server address")
	flag.DurationVar(&pollInterval, "poll", 500*time.Millisecond, "Status poll interval")
	flag.Parse()

	filePaths := flag.Args()
	if len(filePaths) == 0 {
		log.Fatal("At least one file path is required. Usage: client [flags] <file1> <file2> ...")
	}

	// Загружаем файлы одновременно; каждый экспорт — отдельная сессия.
	g := new(errgroup.Group)
	for _, path := range filePaths {
		path := path
		g.Go(func() error {
			return processFile(serverAddr, path, pollInterval)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Обработка не удалась: %v", err)
	}
}

// processFile загружает один экспорт, дожидается завершения обработки
// и печатает сводку по чату.
func processFile(serverAddr, path string, pollInterval time.Duration) error {
	uploadID, err := uploadFile(serverAddr, path)
	if err != nil {
		return fmt.Errorf("не удалось загрузить %s: %w", path, err)
	}

	status, err := waitForCompletion(serverAddr, uploadID, pollInterval)
	if err != nil {
		return fmt.Errorf("загрузка %s не завершилась: %w", path, err)
	}

	var msgs messagesResponse
	if err := getJSON(serverAddr+"/api/v1/chats/"+status.ChatID+"/messages", &msgs); err != nil {
		return fmt.Errorf("не удалось получить сообщения для %s: %w", path, err)
	}

	return exporter.NewConsoleExporter().Export(status.Metadata, msgs.Messages)
}

// uploadFile отправляет файл мультипарт-формой и возвращает идентификатор загрузки.
func uploadFile(serverAddr, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("не удалось открыть файл: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("не удалось создать файл формы: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("не удалось записать данные файла: %w", err)
	}
	// Важно закрыть writer, чтобы записать завершающую границу
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("не удалось закрыть multipart writer: %w", err)
	}

	resp, err := http.Post(serverAddr+"/api/v1/chats", writer.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("не удалось отправить запрос: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("сервер вернул %d: %s", resp.StatusCode, string(data))
	}

	var out struct {
		UploadID string `json:"upload_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("не удалось декодировать ответ: %w", err)
	}
	return out.UploadID, nil
}

// waitForCompletion опрашивает статус загрузки до completed или failed.
func waitForCompletion(serverAddr, uploadID string, pollInterval time.Duration) (*uploadStatusResponse, error) {
	for {
		var status uploadStatusResponse
		if err := getJSON(serverAddr+"/api/v1/uploads/"+uploadID, &status); err != nil {
			return nil, err
		}
		switch status.Status {
		case "completed":
			return &status, nil
		case "failed":
			return nil, fmt.Errorf("обработка завершилась ошибкой: %s", status.ErrorMessage)
		}
		time.Sleep(pollInterval)
	}
}

func getJSON(url string, out any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("сервер вернул %d: %s", resp.StatusCode, string(data))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
