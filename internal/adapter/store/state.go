package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ConnectorState - номера сообщений подключения.
type ConnectorState struct {
	Connector string `json:"connector"`

	// SentNo - номер последнего отправленного сообщения.
	SentNo int64 `json:"sent_no"`

	// ReceivedNo - номер последнего принятого сообщения узла-партнёра.
	ReceivedNo int64 `json:"received_no"`

	// AckedNo - ReceivedNo, переданный партнёру в последнем отправленном сообщении.
	AckedNo int64 `json:"acked_no"`

	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// NeedsConfirmation сообщает, что партнёру ещё не сообщён последний
// принятый номер.
func (s ConnectorState) NeedsConfirmation() bool {
	return s.ReceivedNo > s.AckedNo
}

// NextMessageNo возвращает номер следующего исходящего сообщения.
func (s ConnectorState) NextMessageNo() int64 {
	return s.SentNo + 1
}

// LoadState читает состояние подключения. Для нового подключения
// возвращается нулевое состояние.
func (s *Store) LoadState(ctx context.Context, connector string) (ConnectorState, error) {
	st := ConnectorState{Connector: connector}
	var at dbTime
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT sent_no, received_no, acked_no, updated_at
			FROM exchange_connector_state WHERE connector = ?`),
		connector,
	).Scan(&st.SentNo, &st.ReceivedNo, &st.AckedNo, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return st, queryError("чтение состояния "+connector, err)
	}
	st.UpdatedAt = at.Time
	return st, nil
}

// SaveState сохраняет состояние подключения.
func (s *Store) SaveState(ctx context.Context, st ConnectorState) error {
	now := s.timestamp()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			s.dialect.rebind(`UPDATE exchange_connector_state
				SET sent_no = ?, received_no = ?, acked_no = ?, updated_at = ? WHERE connector = ?`),
			st.SentNo, st.ReceivedNo, st.AckedNo, s.dialect.timeArg(now), st.Connector,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			s.dialect.rebind(`INSERT INTO exchange_connector_state
				(connector, sent_no, received_no, acked_no, updated_at) VALUES (?, ?, ?, ?, ?)`),
			st.Connector, st.SentNo, st.ReceivedNo, st.AckedNo, s.dialect.timeArg(now),
		)
		return err
	})
	if err != nil {
		return queryError("сохранение состояния "+st.Connector, err)
	}
	return nil
}
