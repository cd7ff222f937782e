package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kargones/apk-exchange/internal/adapter/transport"
	"github.com/Kargones/apk-exchange/internal/exchange/audit"
	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
	"github.com/Kargones/apk-exchange/internal/pkg/tracing"
)

// Receive принимает входящее сообщение подключения name:
//  1. захватывает блокировку файла; занятый файл пропускается;
//  2. читает и разбирает сообщение; нечитаемый или чужой файл уходит в карантин;
//  3. по ReceivedNo партнёра очищает подтверждённые изменения;
//  4. пропускает уже принятое сообщение, иначе применяет объекты;
//  5. сохраняет номер принятого сообщения, если нет объектов для повтора;
//  6. удаляет обработанный файл.
//
// Ошибки отдельных объектов не делают сеанс неуспешным на уровне error:
// они возвращаются в Exchange.Processing.
func (s *Service) Receive(ctx context.Context, name string) (ex *result.Exchange, err error) {
	conn, err := s.Connector(name)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "exchange.receive",
		tracing.ConnectorAttr(conn.Name), tracing.DirectionAttr(result.DirectionIncoming))
	defer func() { tracing.EndSpan(span, err) }()

	ex = s.begin(conn, result.DirectionIncoming)
	log := logging.ForExchange(s.logger, conn.Name, result.DirectionIncoming)

	tr, err := s.transports.Open(conn.Transport)
	if err != nil {
		return ex, s.fail(ctx, ex, nil, err)
	}
	defer closeTransport(tr, log)

	file := conn.IncomingFile()
	lock, err := tr.AcquireLock(ctx, file, conn.EffectiveLockTimeout())
	if errors.Is(err, transport.ErrLockConflict) {
		log.Warn("входящий файл заблокирован, приём пропущен", "file", file, logging.KeyError, err.Error())
		ex.Warnings = append(ex.Warnings, err.Error())
		s.finish(ex, result.StatusSkipped)
		return ex, nil
	}
	if err != nil {
		return ex, s.fail(ctx, ex, nil, err)
	}
	defer s.releaseLock(ctx, tr, lock, log)

	raw, err := tr.Fetch(ctx, file)
	if errors.Is(err, transport.ErrNotFound) {
		log.Info("входящего сообщения нет", "file", file)
		s.finish(ex, result.StatusSkipped)
		return ex, nil
	}
	if err != nil {
		return ex, s.fail(ctx, ex, nil, err)
	}

	entry := s.startJournal(ctx, ex)

	msg, err := s.processor.ParseIncomingFile(file, raw)
	if err == nil {
		err = checkRouting(conn, msg.Header)
	}
	if err != nil {
		s.quarantine(ctx, tr, file, ex, log)
		log.Error("входящее сообщение не принято", "file", file, logging.KeyError, err.Error())
		return ex, s.fail(ctx, ex, entry, err)
	}

	ex.MessageNo = msg.Header.MessageNo
	ex.ReceivedNo = msg.Header.ReceivedNo
	ex.Confirmation = msg.IsConfirmation()
	ex.MessageID = msg.MessageID()
	span.SetAttributes(tracing.MessageNoAttr(msg.Header.MessageNo), tracing.ObjectsAttr(msg.Body.ObjectsCount()))
	log = log.With(logging.KeyMessageID, ex.MessageID, logging.KeyMessageNo, ex.MessageNo)
	if entry != nil {
		s.journalWarn(ex, s.journal.MarkAsProcessing(ctx, entry, ex.MessageID, ex.MessageNo))
	}
	ex.Warnings = append(ex.Warnings, headerWarnings(conn, msg.Header)...)

	state, err := s.store.LoadState(ctx, conn.Name)
	if err != nil {
		return ex, s.fail(ctx, ex, entry, err)
	}

	cleared, err := s.store.ClearConfirmed(ctx, conn.Name, msg.Header.ReceivedNo)
	if err != nil {
		return ex, s.fail(ctx, ex, entry, err)
	}
	if msg.Header.ReceivedNo > state.SentNo {
		ex.Warnings = append(ex.Warnings, fmt.Sprintf(
			"партнёр подтвердил сообщение %d, последнее отправленное %d", msg.Header.ReceivedNo, state.SentNo))
	}
	log.Info("подтверждение партнёра обработано", "received_no", msg.Header.ReceivedNo, "cleared", cleared)

	switch {
	case msg.Header.MessageNo == 0:
		log.Info("сообщение содержит только подтверждение")
	case msg.Header.MessageNo <= state.ReceivedNo:
		ex.Warnings = append(ex.Warnings, fmt.Sprintf(
			"сообщение %d уже принято (последнее принятое %d), данные пропущены", msg.Header.MessageNo, state.ReceivedNo))
	default:
		done, err := s.journal.HasCompletedMessage(ctx, conn.Name, ex.MessageID)
		if err != nil {
			s.journalWarn(ex, err)
		}
		if done {
			ex.Warnings = append(ex.Warnings, "сообщение "+ex.MessageID+" уже обработано, данные пропущены")
			state.ReceivedNo = msg.Header.MessageNo
			break
		}

		ex.Processing = s.mapper.ProcessIncomingObjects(ctx, msg.Body.Objects(), conn)
		audit.RecordUnmapped(ctx, s.unmapped, log, conn.Name, ex.Processing.Unmapped, msg.Header.MessageNo)

		if ctx.Err() != nil {
			return ex, s.fail(ctx, ex, entry, ctx.Err())
		}
		if ex.Processing.HasRetryable() {
			ex.Warnings = append(ex.Warnings, fmt.Sprintf(
				"%d объектов ожидают зависимостей: номер %d не подтверждается, партнёр повторит данные",
				ex.Processing.RetryableCount, msg.Header.MessageNo))
		} else {
			state.ReceivedNo = msg.Header.MessageNo
		}
	}

	if err := s.store.SaveState(ctx, state); err != nil {
		return ex, s.fail(ctx, ex, entry, err)
	}
	if err := tr.Remove(ctx, file); err != nil && !errors.Is(err, transport.ErrNotFound) {
		return ex, s.fail(ctx, ex, entry, err)
	}

	s.completeJournal(ctx, ex, entry)
	s.finish(ex, result.StatusCompleted)
	log.Info("приём завершён",
		"processed", ex.Processing.ProcessedCount,
		"errors", len(ex.Processing.Errors),
		"unmapped", ex.Processing.SkippedCount(),
		"duration_ms", ex.Duration().Milliseconds(),
	)
	return ex, nil
}

// completeJournal фиксирует итог. Сообщение с объектами для повтора
// помечается failed, чтобы повторная доставка того же номера не была
// отброшена как дубликат.
func (s *Service) completeJournal(ctx context.Context, ex *result.Exchange, entry *audit.Log) {
	if entry == nil {
		return
	}
	if ex.Processing.HasRetryable() {
		s.journalWarn(ex, s.journal.MarkAsFailed(ctx, entry, ex.AllErrors()))
		return
	}
	s.journalWarn(ex, s.journal.MarkAsCompleted(ctx, entry, ex.Processing, ex.Warnings))
}

// quarantine переносит непринятый файл в каталог error/, чтобы он не
// блокировал следующие сеансы.
func (s *Service) quarantine(ctx context.Context, tr transport.Transport, file string, ex *result.Exchange, log logging.Logger) {
	target := connector.QuarantineFile(file, s.now())
	if err := tr.Rename(context.WithoutCancel(ctx), file, target); err != nil {
		log.Error("не удалось переместить файл в карантин", "file", file, logging.KeyError, err.Error())
		ex.Warnings = append(ex.Warnings, "файл не перемещён в карантин: "+err.Error())
		return
	}
	log.Warn("файл перемещён в карантин", "file", file, "target", target)
	ex.Warnings = append(ex.Warnings, "файл перемещён в "+target)
}

// checkRouting проверяет, что сообщение адресовано этому узлу этим партнёром.
func checkRouting(conn connector.Connector, h message.Header) error {
	if h.To != conn.OwnNode {
		return apperrors.NewAppError(apperrors.ErrExchangeRouting,
			fmt.Sprintf("сообщение адресовано узлу %q, ожидался %q", h.To, conn.OwnNode), nil)
	}
	if h.From != conn.PeerNode {
		return apperrors.NewAppError(apperrors.ErrExchangeRouting,
			fmt.Sprintf("сообщение от узла %q, ожидался %q", h.From, conn.PeerNode), nil)
	}
	if conn.ExchangePlan != "" && h.ExchangePlan != conn.ExchangePlan {
		return apperrors.NewAppError(apperrors.ErrExchangeRouting,
			fmt.Sprintf("план обмена %q, ожидался %q", h.ExchangePlan, conn.ExchangePlan), nil)
	}
	return nil
}

func headerWarnings(conn connector.Connector, h message.Header) []string {
	var out []string
	if h.NewFrom != "" {
		out = append(out, fmt.Sprintf("узел %s сообщил новый код %s", h.From, h.NewFrom))
	}
	if !h.IsEnterpriseData() {
		out = append(out, "формат сообщения "+h.Format+" не EnterpriseData")
	}
	if len(conn.ReceivingVersions) > 0 {
		highest := h.HighestAvailableVersion()
		supported := false
		for _, v := range conn.ReceivingVersions {
			if cmp, err := message.CompareVersions(v, highest); err == nil && cmp == 0 {
				supported = true
				break
			}
		}
		if !supported {
			out = append(out, "старшая версия формата партнёра "+highest+" не входит в принимаемые")
		}
	}
	return out
}
