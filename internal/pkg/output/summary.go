package output

// SummaryInfo содержит ключевые метрики и предупреждения команды.
type SummaryInfo struct {
	KeyMetrics    []KeyMetric `json:"key_metrics,omitempty"`
	WarningsCount int         `json:"warnings_count"`
	Warnings      []string    `json:"warnings,omitempty"`
}

// KeyMetric - одна метрика сводки, например "Объектов загружено: 15 шт".
type KeyMetric struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// NewSummaryInfo создаёт пустую сводку.
func NewSummaryInfo() *SummaryInfo {
	return &SummaryInfo{
		KeyMetrics: make([]KeyMetric, 0),
		Warnings:   make([]string, 0),
	}
}

// AddMetric добавляет метрику в сводку.
func (s *SummaryInfo) AddMetric(name, value, unit string) {
	s.KeyMetrics = append(s.KeyMetrics, KeyMetric{Name: name, Value: value, Unit: unit})
}

// AddWarning добавляет предупреждение в сводку.
func (s *SummaryInfo) AddWarning(msg string) {
	s.Warnings = append(s.Warnings, msg)
	s.WarningsCount++
}

// AddWarnings добавляет несколько предупреждений, не больше limit штук.
// Остаток учитывается только в WarningsCount. limit <= 0 снимает ограничение.
func (s *SummaryInfo) AddWarnings(msgs []string, limit int) {
	for i, m := range msgs {
		if limit > 0 && i >= limit {
			s.WarningsCount += len(msgs) - limit
			return
		}
		s.AddWarning(m)
	}
}
