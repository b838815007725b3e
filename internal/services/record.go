package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/cicap/personnel/internal/mq"
	"github.com/cicap/personnel/internal/sheet"
	"github.com/cicap/personnel/internal/store"
	"github.com/cicap/personnel/types"
)

// RecordRepository defines persistence operations for personnel records.
type RecordRepository interface {
	Load(ctx context.Context) ([]types.PersonnelRecord, error)
	Save(ctx context.Context, records []types.PersonnelRecord) error
}

// DocumentStore sideloads record attachments.
type DocumentStore interface {
	Store(ctx context.Context, recordID int, filename string, data []byte) (string, error)
}

// RecordInput holds the user-entered fields of a new record.
type RecordInput struct {
	Name       string
	NationalID string
	Position   string
	Department string
	Phone      string
	Email      string
	HireDate   types.Date
	Notes      string
}

// Attachment is an uploaded document.
type Attachment struct {
	Filename string
	Data     []byte
}

// RecordService encapsulates record use-cases. Every mutation loads the whole
// workbook, changes it in memory and writes it back. Mutations are serialized
// within this process only; two processes sharing the workbook can still
// overwrite each other's changes.
type RecordService struct {
	repo      RecordRepository
	documents DocumentStore
	log       *slog.Logger
	today     func() types.Date

	mu     sync.RWMutex
	events EventPublisher
	topic  string
}

func NewRecordService(repo RecordRepository, documents DocumentStore, log *slog.Logger) *RecordService {
	return &RecordService{
		repo:      repo,
		documents: documents,
		log:       log,
		today:     types.Today,
	}
}

// SetEvents enables change events on channel.
func (s *RecordService) SetEvents(events EventPublisher, channel string) {
	s.events = events
	s.topic = channel
}

// List returns the records matching query, in file order.
func (s *RecordService) List(ctx context.Context, query string) ([]types.PersonnelRecord, error) {
	s.mu.RLock()
	records, err := s.repo.Load(ctx)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return Search(records, query), nil
}

// Get returns the first record with id.
func (s *RecordService) Get(ctx context.Context, id int) (types.PersonnelRecord, error) {
	s.mu.RLock()
	records, err := s.repo.Load(ctx)
	s.mu.RUnlock()
	if err != nil {
		return types.PersonnelRecord{}, err
	}
	for _, record := range records {
		if record.ID == id {
			return record, nil
		}
	}
	return types.PersonnelRecord{}, store.ErrNotFound
}

// Names returns the name of every record in file order, duplicates included.
func (s *RecordService) Names(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	records, err := s.repo.Load(ctx)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, record := range records {
		names = append(names, record.Name)
	}
	return names, nil
}

// Create validates input, assigns the next id, stamps the registration day
// and author, sideloads the attachment if any, and appends the record.
func (s *RecordService) Create(ctx context.Context, input RecordInput, registeredBy string, attachment *Attachment) (types.PersonnelRecord, error) {
	if strings.TrimSpace(input.Name) == "" {
		return types.PersonnelRecord{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repo.Load(ctx)
	if err != nil {
		return types.PersonnelRecord{}, err
	}

	today := s.today()
	record := types.PersonnelRecord{
		ID:             NextID(records),
		RegisteredDate: today,
		Name:           input.Name,
		NationalID:     input.NationalID,
		Position:       input.Position,
		Department:     input.Department,
		Phone:          input.Phone,
		Email:          input.Email,
		HireDate:       input.HireDate,
		Notes:          input.Notes,
		RegisteredBy:   registeredBy,
	}
	if record.HireDate.IsZero() {
		record.HireDate = today
	}
	if err := checkCellLengths(record); err != nil {
		return types.PersonnelRecord{}, err
	}

	if attachment != nil && len(attachment.Data) > 0 {
		if s.documents == nil {
			return types.PersonnelRecord{}, fmt.Errorf("store attachment: no document storage configured")
		}
		location, err := s.documents.Store(ctx, record.ID, attachment.Filename, attachment.Data)
		if err != nil {
			return types.PersonnelRecord{}, err
		}
		record.AttachmentPath = location
	}

	records = append(records, record)
	if err := s.repo.Save(ctx, records); err != nil {
		return types.PersonnelRecord{}, err
	}

	s.log.InfoContext(ctx, "record created", "id", record.ID, "registered_by", registeredBy)
	publish(ctx, s.log, s.events, s.topic, mq.Event{
		Type:     mq.EventRecordCreated,
		Actor:    registeredBy,
		RecordID: record.ID,
		Name:     record.Name,
	})
	return record, nil
}

// Update sets name and position on every record named match and saves.
// It returns how many records changed; zero matches still saves and succeeds.
func (s *RecordService) Update(ctx context.Context, actor, match, newName, newPosition string) (int, error) {
	if strings.TrimSpace(newName) == "" {
		return 0, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if sheet.TooLong(newName) || sheet.TooLong(newPosition) {
		return 0, fmt.Errorf("%w: text longer than %d characters", ErrValidation, sheet.MaxCellChars)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}
	affected := UpdateByName(records, match, newName, newPosition)
	if err := s.repo.Save(ctx, records); err != nil {
		return 0, err
	}

	s.log.InfoContext(ctx, "records updated", "match", match, "affected", affected, "by", actor)
	publish(ctx, s.log, s.events, s.topic, mq.Event{
		Type:     mq.EventRecordUpdated,
		Actor:    actor,
		Name:     match,
		Affected: affected,
	})
	return affected, nil
}

// Delete removes every record named match and saves. It is idempotent.
func (s *RecordService) Delete(ctx context.Context, actor, match string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}
	kept, removed := DeleteByName(records, match)
	if err := s.repo.Save(ctx, kept); err != nil {
		return 0, err
	}

	s.log.InfoContext(ctx, "records deleted", "match", match, "removed", removed, "by", actor)
	publish(ctx, s.log, s.events, s.topic, mq.Event{
		Type:     mq.EventRecordDeleted,
		Actor:    actor,
		Name:     match,
		Affected: removed,
	})
	return removed, nil
}

// checkCellLengths rejects records whose text would be cut when saved.
func checkCellLengths(record types.PersonnelRecord) error {
	for i, column := range record.Columns() {
		if sheet.TooLong(column) {
			return fmt.Errorf("%w: %s longer than %d characters", ErrValidation, store.RecordHeader[i], sheet.MaxCellChars)
		}
	}
	return nil
}

// NextID returns 1 for an empty table, otherwise the largest id plus one.
// Rows without an id are ignored.
func NextID(records []types.PersonnelRecord) int {
	maxID := 0
	for _, record := range records {
		if record.ID > maxID {
			maxID = record.ID
		}
	}
	return maxID + 1
}

// Search returns records where any column contains query, ignoring case.
// An empty query returns records unchanged.
func Search(records []types.PersonnelRecord, query string) []types.PersonnelRecord {
	if query == "" {
		return records
	}

	folder := cases.Fold()
	needle := folder.String(query)
	matches := make([]types.PersonnelRecord, 0, len(records))
	for _, record := range records {
		for _, column := range record.Columns() {
			if strings.Contains(folder.String(column), needle) {
				matches = append(matches, record)
				break
			}
		}
	}
	return matches
}

// UpdateByName overwrites name and position of every record whose name equals
// match, in place, and returns the number of records changed.
func UpdateByName(records []types.PersonnelRecord, match, newName, newPosition string) int {
	affected := 0
	for i := range records {
		if records[i].Name == match {
			records[i].Name = newName
			records[i].Position = newPosition
			affected++
		}
	}
	return affected
}

// DeleteByName returns records without those named match, plus the number
// removed. The input slice is not modified.
func DeleteByName(records []types.PersonnelRecord, match string) ([]types.PersonnelRecord, int) {
	kept := make([]types.PersonnelRecord, 0, len(records))
	for _, record := range records {
		if record.Name != match {
			kept = append(kept, record)
		}
	}
	return kept, len(records) - len(kept)
}
