// Package exchange выполняет сеансы обмена EnterpriseData с узлами-партнёрами:
// приём входящего сообщения, отправку изменений и подтверждений.
//
// Состояние подключения между запусками хранится в store: номер последнего
// отправленного сообщения (SentNo), последнего принятого (ReceivedNo) и
// номер, уже подтверждённый партнёру (AckedNo). Изменения сущностей остаются
// зарегистрированными до подтверждения партнёром номера сообщения, в котором
// они ушли, поэтому неподтверждённые данные повторяются в следующем сообщении.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kargones/apk-exchange/internal/adapter/store"
	"github.com/Kargones/apk-exchange/internal/adapter/transport"
	"github.com/Kargones/apk-exchange/internal/exchange/audit"
	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/exchange/datamapper"
	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/processor"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
	"github.com/Kargones/apk-exchange/internal/pkg/metrics"
)

// ErrUnknownConnector - подключение с таким именем не настроено.
var ErrUnknownConnector = errors.New("exchange: неизвестное подключение")

// Store - хранилище, которым пользуется сервис обмена.
type Store interface {
	datamapper.EntityStore
	Find(ctx context.Context, kind entity.Kind, guid string) (entity.Entity, error)
	PendingChanges(ctx context.Context, connector string) ([]store.Change, error)
	AssignMessageNo(ctx context.Context, connector string, ids []int64, messageNo int64) error
	ClearConfirmed(ctx context.Context, connector string, receivedNo int64) (int64, error)
	LoadState(ctx context.Context, connector string) (store.ConnectorState, error)
	SaveState(ctx context.Context, st store.ConnectorState) error
}

// Deps - зависимости сервиса.
type Deps struct {
	Processor  *processor.Processor
	Mapper     *datamapper.Mapper
	Store      Store
	Journal    audit.Recorder
	Unmapped   audit.UnmappedRecorder
	Transports transport.Factory
	Connectors []connector.Connector
	Logger     logging.Logger
	Metrics    metrics.Collector

	// Now - источник времени. По умолчанию time.Now.
	Now func() time.Time
}

// Service выполняет сеансы обмена по настроенным подключениям.
type Service struct {
	processor  *processor.Processor
	mapper     *datamapper.Mapper
	store      Store
	journal    audit.Recorder
	unmapped   audit.UnmappedRecorder
	transports transport.Factory
	connectors []connector.Connector
	logger     logging.Logger
	metrics    metrics.Collector
	now        func() time.Time
}

// New проверяет подключения и создаёт сервис.
func New(d Deps) (*Service, error) {
	if d.Processor == nil || d.Mapper == nil || d.Store == nil || d.Journal == nil || d.Transports == nil {
		return nil, fmt.Errorf("exchange: не заданы обязательные зависимости сервиса")
	}
	seen := make(map[string]bool, len(d.Connectors))
	for _, c := range d.Connectors {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("подключение %q: %w", c.Name, err)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("exchange: подключение %q описано дважды", c.Name)
		}
		seen[c.Name] = true
	}

	s := &Service{
		processor:  d.Processor,
		mapper:     d.Mapper,
		store:      d.Store,
		journal:    d.Journal,
		unmapped:   d.Unmapped,
		transports: d.Transports,
		connectors: d.Connectors,
		logger:     d.Logger,
		metrics:    d.Metrics,
		now:        d.Now,
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNopCollector()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Connectors возвращает имена настроенных подключений в порядке конфигурации.
func (s *Service) Connectors() []string {
	names := make([]string, 0, len(s.connectors))
	for _, c := range s.connectors {
		names = append(names, c.Name)
	}
	return names
}

// Connector возвращает подключение по имени.
func (s *Service) Connector(name string) (connector.Connector, error) {
	for _, c := range s.connectors {
		if c.Name == name {
			return c, nil
		}
	}
	return connector.Connector{}, fmt.Errorf("%w: %q", ErrUnknownConnector, name)
}

// Run выполняет двусторонний обмен: приём, затем отправку с подтверждением
// принятого номера. Ошибка приёма не отменяет отправку.
func (s *Service) Run(ctx context.Context, name string) ([]*result.Exchange, error) {
	var out []*result.Exchange

	in, recvErr := s.Receive(ctx, name)
	if in != nil {
		out = append(out, in)
	}
	if errors.Is(recvErr, ErrUnknownConnector) || ctx.Err() != nil {
		return out, recvErr
	}

	outEx, sendErr := s.Send(ctx, name)
	if outEx != nil {
		out = append(out, outEx)
	}
	return out, errors.Join(recvErr, sendErr)
}

// Cleanup удаляет записи журнала обмена старше days дней.
func (s *Service) Cleanup(ctx context.Context, days int) (int64, error) {
	return s.journal.Cleanup(ctx, days)
}

// begin создаёт результат сеанса.
func (s *Service) begin(conn connector.Connector, direction string) *result.Exchange {
	return &result.Exchange{
		Connector:  conn.Name,
		Direction:  direction,
		Status:     result.StatusStarted,
		Processing: result.NewProcessing(),
		StartedAt:  s.now().UTC(),
	}
}

// finish завершает сеанс и записывает метрики.
func (s *Service) finish(ex *result.Exchange, status string) {
	ex.Status = status
	ex.FinishedAt = s.now().UTC()
	s.metrics.RecordExchange(ex.Connector, ex.Direction, status, ex.Duration())

	p := ex.Processing
	s.metrics.RecordObjects(ex.Connector, metrics.OutcomeCreated, len(p.CreatedIDs))
	s.metrics.RecordObjects(ex.Connector, metrics.OutcomeUpdated, len(p.UpdatedIDs))
	s.metrics.RecordObjects(ex.Connector, metrics.OutcomeDeleted, len(p.DeletedIDs))
	s.metrics.RecordObjects(ex.Connector, metrics.OutcomeFailed, len(p.Errors))
	s.metrics.RecordObjects(ex.Connector, metrics.OutcomeUnmapped, len(p.Unmapped))
}

// fail завершает сеанс с ошибкой.
func (s *Service) fail(ctx context.Context, ex *result.Exchange, entry *audit.Log, err error) error {
	status := result.StatusFailed
	if ctx.Err() != nil {
		status = result.StatusCancelled
	}
	ex.Errors = append(ex.Errors, err.Error())
	s.finish(ex, status)

	if entry != nil {
		var jerr error
		if status == result.StatusCancelled {
			jerr = s.journal.MarkAsCancelled(ctx, entry, err.Error())
		} else {
			jerr = s.journal.MarkAsFailed(context.WithoutCancel(ctx), entry, ex.AllErrors())
		}
		s.journalWarn(ex, jerr)
	}
	return err
}

// startJournal создаёт запись журнала. Сбой журнала не прерывает обмен.
func (s *Service) startJournal(ctx context.Context, ex *result.Exchange) *audit.Log {
	entry, err := s.journal.MarkAsStarted(ctx, ex.Connector, ex.Direction)
	s.journalWarn(ex, err)
	return entry
}

func (s *Service) journalWarn(ex *result.Exchange, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("ошибка записи журнала обмена",
		logging.KeyConnector, ex.Connector,
		logging.KeyDirection, ex.Direction,
		logging.KeyError, err.Error(),
	)
}

// releaseLock снимает блокировку и логирует сбой.
func (s *Service) releaseLock(ctx context.Context, tr transport.Transport, lock *connector.FileLock, log logging.Logger) {
	if err := tr.ReleaseLock(context.WithoutCancel(ctx), lock); err != nil {
		log.Warn("не удалось снять блокировку", "file", lock.FileName, logging.KeyError, err.Error())
	}
}

func closeTransport(tr transport.Transport, log logging.Logger) {
	if err := tr.Close(); err != nil {
		log.Debug("ошибка закрытия транспорта", logging.KeyError, err.Error())
	}
}
