package services

import (
	"context"
	"sort"

	"github.com/cicap/personnel/types"
)

// Count is one bar of a chart.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats feeds the two bar charts of the statistics view.
type Stats struct {
	Total        int     `json:"total"`
	ByUser       []Count `json:"by_user"`
	ByDepartment []Count `json:"by_department"`
}

// Stats groups the records by author and by department.
func (s *RecordService) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	records, err := s.repo.Load(ctx)
	s.mu.RUnlock()
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		Total: len(records),
		ByUser: CountBy(records, func(r types.PersonnelRecord) string {
			return r.RegisteredBy
		}),
		ByDepartment: CountBy(records, func(r types.PersonnelRecord) string {
			return r.Department
		}),
	}, nil
}

// CountBy counts records per non-empty key. The result is ordered by count,
// highest first; ties keep the order in which keys first appear.
func CountBy(records []types.PersonnelRecord, key func(types.PersonnelRecord) string) []Count {
	index := make(map[string]int)
	counts := make([]Count, 0)
	for _, record := range records {
		label := key(record)
		if label == "" {
			continue
		}
		i, ok := index[label]
		if !ok {
			i = len(counts)
			index[label] = i
			counts = append(counts, Count{Label: label})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}
