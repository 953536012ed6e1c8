package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"whatsapp-chat-analyzer/internal/domain"
	"whatsapp-chat-analyzer/internal/ports"
)

// headerRegexp распознает строку-заголовок нового сообщения вида
// "<дата>, <время> - <остаток>". Распознавание лексическое: числовые токены
// даты (день-первый или месяц-первый, разделители ". / -") и время в
// 12- или 24-часовом формате, с необязательными секундами и суффиксом AM/PM.
// Строка, не прошедшая этот шаблон, считается продолжением предыдущего тела.
var headerRegexp = regexp.MustCompile(
	`^(\d{1,4}[./-]\d{1,2}[./-]\d{1,4}),? (\d{1,2}:\d{2}(?::\d{2})?(?: ?[AaPp]\.?[Mm]\.?)?) - (.*)$`)

// artifactReplacer убирает артефакты кодировки, которые мессенджеры вставляют
// в текстовый экспорт: маркеры направления письма, BOM и неразрывные пробелы.
var artifactReplacer = strings.NewReplacer(
	"\u200e", "", // left-to-right mark
	"\u200f", "", // right-to-left mark
	"\ufeff", "", // BOM
	"\u00a0", " ", // неразрывный пробел
	"\u202f", " ", // узкий неразрывный пробел (перед AM/PM в новых экспортах)
)

// TextParser реализует интерфейс Parser для текстового формата экспорта чата.
type TextParser struct{}

// NewTextParser создает новый экземпляр TextParser.
func NewTextParser() ports.Parser {
	return &TextParser{}
}

// Parse преобразует сырой текст экспорта в упорядоченные записи-кандидаты.
// Порядок вывода строго совпадает с порядком строк входа; парсер никогда
// не сортирует по времени. Ошибок формата не бывает: нераспознанная строка
// становится продолжением тела предыдущего сообщения.
func (p *TextParser) Parse(data []byte) ([]domain.RawLine, error) {
	lines := strings.Split(string(data), "\n")
	records := make([]domain.RawLine, 0, len(lines))

	for _, line := range lines {
		line = artifactReplacer.Replace(strings.TrimRight(line, "\r"))
		if strings.TrimSpace(line) == "" {
			// Пустые строки не являются ни сообщением, ни продолжением.
			continue
		}

		match := headerRegexp.FindStringSubmatch(line)
		if match == nil {
			// Строка-продолжение. Файл, начинающийся с продолжения, — это
			// поврежденный экспорт: прикрепляем его к пустому синтетическому
			// ведущему сообщению вместо ошибки.
			if len(records) == 0 {
				records = append(records, domain.RawLine{Sender: domain.SenderSystem})
				records[0].Body = line
				continue
			}
			last := &records[len(records)-1]
			if last.Body == "" {
				last.Body = line
			} else {
				last.Body += "\n" + line
			}
			continue
		}

		record := domain.RawLine{Date: match[1], Time: match[2]}
		rest := match[3]
		if idx := strings.Index(rest, ": "); idx >= 0 {
			record.Sender = rest[:idx]
			record.Body = rest[idx+2:]
		} else {
			// Сервисное уведомление без сегмента "автор: ". Сохраняем его
			// с отправителем-маркером, чтобы потребители могли сами решить,
			// отфильтровывать его или нет.
			record.Sender = domain.SenderSystem
			record.Body = rest
		}
		records = append(records, record)
	}

	return records, nil
}

// ParseTimestamp интерпретирует напечатанные дату и время записи как
// локальный момент времени. Дата принимается в числовых форматах
// день-первый и месяц-первый; эвристика: компонент больше 12 однозначно
// является днем, иначе "." и "-" читаются как день-первый, "/" — как
// месяц-первый (американская локаль). Четырехзначный первый компонент
// читается как год (ISO-подобный экспорт).
func ParseTimestamp(dateStr, timeStr string) (time.Time, error) {
	sep := dateSeparator(dateStr)
	if sep == 0 {
		return time.Time{}, fmt.Errorf("дата %q не содержит разделителя", dateStr)
	}
	parts := strings.Split(dateStr, string(sep))
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("дата %q не состоит из трех компонентов", dateStr)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return time.Time{}, fmt.Errorf("компонент даты %q не число: %w", part, err)
		}
		nums[i] = n
	}

	var year, month, day int
	switch {
	case len(parts[0]) == 4:
		year, month, day = nums[0], nums[1], nums[2]
	default:
		year = nums[2]
		if year < 100 {
			year += 2000
		}
		a, b := nums[0], nums[1]
		switch {
		case a > 12:
			day, month = a, b
		case b > 12:
			month, day = a, b
		case sep == '/':
			month, day = a, b
		default:
			day, month = a, b
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("недопустимая дата %q", dateStr)
	}

	hour, minute, second, err := parseClock(timeStr)
	if err != nil {
		return time.Time{}, err
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
	// time.Date нормализует переполнение (30 февраля → 2 марта);
	// такие даты считаем некорректными, а не молча сдвинутыми.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("несуществующая дата %q", dateStr)
	}
	return t, nil
}

// parseClock разбирает время в формате "15:04", "15:04:05", "3:04 PM"
// или "3:04:05 p.m.".
func parseClock(timeStr string) (hour, minute, second int, err error) {
	s := strings.ToLower(strings.TrimSpace(timeStr))
	s = strings.ReplaceAll(s, ".", "")

	meridiem := ""
	for _, suffix := range []string{"am", "pm"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	fields := strings.Split(s, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, 0, 0, fmt.Errorf("недопустимое время %q", timeStr)
	}
	hour, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("недопустимый час в %q: %w", timeStr, err)
	}
	minute, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("недопустимая минута в %q: %w", timeStr, err)
	}
	if len(fields) == 3 {
		second, err = strconv.Atoi(fields[2])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("недопустимая секунда в %q: %w", timeStr, err)
		}
	}

	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, 0, fmt.Errorf("недопустимый 12-часовой час в %q", timeStr)
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, 0, fmt.Errorf("недопустимый 12-часовой час в %q", timeStr)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, 0, fmt.Errorf("недопустимый час в %q", timeStr)
		}
	}
	if minute > 59 || second > 59 {
		return 0, 0, 0, fmt.Errorf("недопустимое время %q", timeStr)
	}
	return hour, minute, second, nil
}

func dateSeparator(dateStr string) byte {
	for _, sep := range []byte{'.', '/', '-'} {
		if strings.IndexByte(dateStr, sep) >= 0 {
			return sep
		}
	}
	return 0
}
