package result

import "slices"

// UnmappedRef - объект, для типа которого нет сопоставления.
type UnmappedRef struct {
	ObjectType string `json:"object_type"`
	Ref        string `json:"ref,omitempty"`
}

// Processing - итог обработки пакета объектов.
type Processing struct {
	Success        bool          `json:"success"`
	ProcessedCount int           `json:"processed_count"`
	CreatedIDs     []string      `json:"created_ids,omitempty"`
	UpdatedIDs     []string      `json:"updated_ids,omitempty"`
	DeletedIDs     []string      `json:"deleted_ids,omitempty"`
	Errors         []string      `json:"errors,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
	Unmapped       []UnmappedRef `json:"unmapped,omitempty"`

	// RetryableCount - число объектов, не загруженных из-за ещё не
	// синхронизированных зависимостей.
	RetryableCount int `json:"retryable_count"`
}

// NewProcessing создаёт пустой успешный результат.
func NewProcessing() Processing {
	return Processing{Success: true}
}

// Merge объединяет результаты двух пакетов.
func (p Processing) Merge(other Processing) Processing {
	return Processing{
		Success:        p.Success && other.Success,
		ProcessedCount: p.ProcessedCount + other.ProcessedCount,
		CreatedIDs:     concat(p.CreatedIDs, other.CreatedIDs),
		UpdatedIDs:     concat(p.UpdatedIDs, other.UpdatedIDs),
		DeletedIDs:     concat(p.DeletedIDs, other.DeletedIDs),
		Errors:         concat(p.Errors, other.Errors),
		Warnings:       concat(p.Warnings, other.Warnings),
		Unmapped:       concat(p.Unmapped, other.Unmapped),
		RetryableCount: p.RetryableCount + other.RetryableCount,
	}
}

// HasRetryable сообщает, что часть объектов нужно повторить позже.
func (p Processing) HasRetryable() bool {
	return p.RetryableCount > 0
}

// SkippedCount - число пропущенных объектов без сопоставления.
func (p Processing) SkippedCount() int {
	return len(p.Unmapped)
}

func concat[T any](a, b []T) []T {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	return append(slices.Clone(a), b...)
}
