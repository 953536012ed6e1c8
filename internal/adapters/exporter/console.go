package exporter

import (
	"fmt"
	"sort"

	"whatsapp-chat-analyzer/internal/core/services"
	"whatsapp-chat-analyzer/internal/domain"
	"whatsapp-chat-analyzer/internal/ports"
)

// ConsoleExporter реализует интерфейс Exporter для вывода сводки в консоль.
type ConsoleExporter struct{}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
func NewConsoleExporter() ports.Exporter {
	return &ConsoleExporter{}
}

// Export выводит сводку по чату: метаданные и доли отправителей.
func (e *ConsoleExporter) Export(meta *domain.ChatMetadata, msgs []domain.Message) error {
	fmt.Println("--- Chat Summary ---")
	if meta == nil || meta.TotalCount == 0 {
		fmt.Println("No messages found.")
		return nil
	}

	fmt.Printf("File: %s\n", meta.FileName)
	fmt.Printf("Language: %s\n", meta.Language)
	fmt.Printf("Messages: %d (used after filters: %d)\n", len(msgs), services.CountUsed(msgs))
	fmt.Printf("Period: %s — %s\n",
		meta.FirstMessage.Format("2006-01-02 15:04"),
		meta.LastMessage.Format("2006-01-02 15:04"))

	senders := make([]string, 0, len(meta.SenderCounts))
	for sender := range meta.SenderCounts {
		senders = append(senders, sender)
	}
	sort.Slice(senders, func(i, j int) bool {
		return meta.SenderCounts[senders[i]] > meta.SenderCounts[senders[j]]
	})

	fmt.Println("Senders:")
	for i, sender := range senders {
		fmt.Printf("%d. %s (%s): %d messages, %.1f%%\n",
			i+1, sender, meta.ShortNames[sender], meta.SenderCounts[sender], meta.SenderShares[sender])
	}
	return nil
}
