package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kargones/apk-exchange/internal/adapter/store"
	"github.com/Kargones/apk-exchange/internal/adapter/transport"
	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
	"github.com/Kargones/apk-exchange/internal/pkg/metrics"
	"github.com/Kargones/apk-exchange/internal/pkg/tracing"
)

// outgoing - подготовленное к записи сообщение.
type outgoing struct {
	raw       []byte
	messageNo int64
	objects   int

	// changeIDs - изменения, которые уходят в этом сообщении.
	changeIDs []int64
}

// Send отправляет узлу-партнёру зарегистрированные изменения вместе с
// номером последнего принятого сообщения. Если выгружать нечего, а принятый
// номер ещё не подтверждён, отправляется сообщение-подтверждение.
//
// Ранее записанный и не забранный партнёром файл перезаписывается:
// неподтверждённые изменения входят в каждое следующее сообщение.
func (s *Service) Send(ctx context.Context, name string) (ex *result.Exchange, err error) {
	conn, err := s.Connector(name)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "exchange.send",
		tracing.ConnectorAttr(conn.Name), tracing.DirectionAttr(result.DirectionOutgoing))
	defer func() { tracing.EndSpan(span, err) }()

	ex = s.begin(conn, result.DirectionOutgoing)
	log := logging.ForExchange(s.logger, conn.Name, result.DirectionOutgoing)

	state, err := s.store.LoadState(ctx, conn.Name)
	if err != nil {
		return ex, s.fail(ctx, ex, nil, err)
	}
	changes, err := s.store.PendingChanges(ctx, conn.Name)
	if err != nil {
		return ex, s.fail(ctx, ex, nil, err)
	}

	var out outgoing
	if len(changes) > 0 {
		if out, err = s.dataMessage(ctx, conn, state, changes, ex); err != nil {
			return ex, s.fail(ctx, ex, nil, err)
		}
	}
	// Без объектов номер сообщения не расходуется: остаётся только подтверждение.
	if out.raw == nil {
		if !state.NeedsConfirmation() {
			log.Info("изменений к отправке нет", "pending", len(changes))
			s.finish(ex, result.StatusSkipped)
			return ex, nil
		}
		if out, err = s.confirmation(conn, state); err != nil {
			return ex, s.fail(ctx, ex, nil, err)
		}
	}

	span.SetAttributes(tracing.MessageNoAttr(out.messageNo), tracing.ObjectsAttr(out.objects))
	if err := s.write(ctx, conn, state, out, ex, log); err != nil {
		return ex, err
	}
	return ex, nil
}

// Confirm записывает сообщение-подтверждение с текущим номером принятого
// сообщения, не отправляя изменений. Пока от партнёра ничего не принято,
// сеанс пропускается.
func (s *Service) Confirm(ctx context.Context, name string) (ex *result.Exchange, err error) {
	conn, err := s.Connector(name)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "exchange.confirm",
		tracing.ConnectorAttr(conn.Name), tracing.DirectionAttr(result.DirectionOutgoing))
	defer func() { tracing.EndSpan(span, err) }()

	ex = s.begin(conn, result.DirectionOutgoing)
	log := logging.ForExchange(s.logger, conn.Name, result.DirectionOutgoing)

	state, err := s.store.LoadState(ctx, conn.Name)
	if err != nil {
		return ex, s.fail(ctx, ex, nil, err)
	}
	if state.ReceivedNo == 0 {
		msg := "от узла-партнёра ещё не принято ни одного сообщения, подтверждать нечего"
		log.Info(msg)
		ex.Warnings = append(ex.Warnings, msg)
		s.finish(ex, result.StatusSkipped)
		return ex, nil
	}
	out, err := s.confirmation(conn, state)
	if err != nil {
		return ex, s.fail(ctx, ex, nil, err)
	}
	if err := s.write(ctx, conn, state, out, ex, log); err != nil {
		return ex, err
	}
	return ex, nil
}

func (s *Service) confirmation(conn connector.Connector, state store.ConnectorState) (outgoing, error) {
	raw, err := s.processor.GenerateConfirmationOnlyMessage(conn, state.ReceivedNo)
	if err != nil {
		return outgoing{}, err
	}
	return outgoing{raw: raw}, nil
}

// dataMessage собирает объекты по зарегистрированным изменениям.
// Изменение, которое нельзя выгрузить из-за ошибки преобразования,
// остаётся в очереди. Изменение без сопоставления или с типом, который
// подключение не отправляет, уходит вместе с сообщением и снимается
// с очереди после подтверждения.
func (s *Service) dataMessage(ctx context.Context, conn connector.Connector, state store.ConnectorState, changes []store.Change, ex *result.Exchange) (outgoing, error) {
	out := outgoing{messageNo: state.NextMessageNo()}
	objects := make([]message.Object, 0, len(changes))

	for _, ch := range changes {
		if err := ctx.Err(); err != nil {
			return outgoing{}, err
		}

		if !ch.Deleted {
			e, err := s.store.Find(ctx, ch.Kind, ch.GUID)
			switch {
			case err == nil:
				objs, p := s.mapper.PrepareOutgoingObjects(ctx, []entity.Entity{e}, conn)
				ex.Processing = ex.Processing.Merge(p)
				objects = append(objects, objs...)
				if len(p.Errors) == 0 {
					out.changeIDs = append(out.changeIDs, ch.ID)
				}
				continue
			case !errors.Is(err, store.ErrNotFound):
				return outgoing{}, err
			}
		}

		obj, ok := s.mapper.DeletionObject(ch.Kind, ch.GUID, conn)
		if ok {
			objects = append(objects, obj)
			ex.Processing.ProcessedCount++
			ex.Processing.DeletedIDs = append(ex.Processing.DeletedIDs, ch.GUID)
		} else {
			ex.Processing.Warnings = append(ex.Processing.Warnings,
				fmt.Sprintf("%s %s: удаление не отправляется подключением %s", ch.Kind, ch.GUID, conn.Name))
		}
		out.changeIDs = append(out.changeIDs, ch.ID)
	}

	if len(objects) == 0 {
		// Изменения без объектов уйдут со следующим сообщением с данными.
		return outgoing{}, nil
	}
	raw, err := s.processor.GenerateOutgoingMessage(conn, out.messageNo, state.ReceivedNo, objects)
	if err != nil {
		return outgoing{}, err
	}
	out.raw = raw
	out.objects = len(objects)
	return out, nil
}

// write записывает сообщение под блокировкой файла и фиксирует состояние.
func (s *Service) write(ctx context.Context, conn connector.Connector, state store.ConnectorState, out outgoing, ex *result.Exchange, log logging.Logger) error {
	ex.MessageNo = out.messageNo
	ex.ReceivedNo = state.ReceivedNo
	ex.Confirmation = out.messageNo == 0
	ex.MessageID = message.MessageID(conn.OwnNode, out.messageNo)
	log = log.With(logging.KeyMessageID, ex.MessageID, logging.KeyMessageNo, ex.MessageNo)

	tr, err := s.transports.Open(conn.Transport)
	if err != nil {
		return s.fail(ctx, ex, nil, err)
	}
	defer closeTransport(tr, log)

	file := conn.OutgoingFile()
	lock, err := tr.AcquireLock(ctx, file, conn.EffectiveLockTimeout())
	if errors.Is(err, transport.ErrLockConflict) {
		log.Warn("исходящий файл заблокирован, отправка пропущена", "file", file, logging.KeyError, err.Error())
		ex.Warnings = append(ex.Warnings, err.Error())
		s.finish(ex, result.StatusSkipped)
		return nil
	}
	if err != nil {
		return s.fail(ctx, ex, nil, err)
	}
	defer s.releaseLock(ctx, tr, lock, log)

	entry := s.startJournal(ctx, ex)
	if entry != nil {
		s.journalWarn(ex, s.journal.MarkAsProcessing(ctx, entry, ex.MessageID, ex.MessageNo))
	}

	if err := tr.Put(ctx, file, out.raw); err != nil {
		return s.fail(ctx, ex, entry, err)
	}

	if out.messageNo > 0 {
		if err := s.store.AssignMessageNo(ctx, conn.Name, out.changeIDs, out.messageNo); err != nil {
			return s.fail(ctx, ex, entry, err)
		}
		state.SentNo = out.messageNo
	}
	state.AckedNo = state.ReceivedNo
	if err := s.store.SaveState(ctx, state); err != nil {
		return s.fail(ctx, ex, entry, err)
	}

	if entry != nil {
		s.journalWarn(ex, s.journal.MarkAsCompleted(ctx, entry, ex.Processing, ex.Warnings))
	}
	s.metrics.RecordObjects(conn.Name, metrics.OutcomeSent, out.objects)
	s.finish(ex, result.StatusCompleted)
	log.Info("сообщение записано",
		"file", file,
		"objects", out.objects,
		"received_no", state.ReceivedNo,
		"bytes", len(out.raw),
	)
	return nil
}
