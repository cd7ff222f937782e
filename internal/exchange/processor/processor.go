// Package processor разбирает входящие XML-сообщения обмена EnterpriseData
// и формирует исходящие сообщения с данными и подтверждениями.
package processor

import (
	"errors"
	"fmt"
	"time"

	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

// DateLayout - формат CreationDate: без зоны и дробной части.
const DateLayout = "2006-01-02T15:04:05"

// ErrParse - признак ошибки разбора сообщения, проверяется через errors.Is.
var ErrParse = errors.New("ошибка разбора сообщения обмена")

// ErrGenerate - признак ошибки формирования сообщения.
var ErrGenerate = errors.New("ошибка формирования сообщения обмена")

// Options - параметры Processor.
type Options struct {
	Logger logging.Logger

	// Location - часовой пояс для CreationDate без зоны. По умолчанию time.Local.
	Location *time.Location

	// Now - источник текущего времени. По умолчанию time.Now.
	Now func() time.Time
}

// Processor разбирает и формирует сообщения. Не хранит состояния между вызовами.
type Processor struct {
	logger   logging.Logger
	location *time.Location
	now      func() time.Time
}

// New создаёт Processor.
func New(opts Options) *Processor {
	p := &Processor{
		logger:   opts.Logger,
		location: opts.Location,
		now:      opts.Now,
	}
	if p.logger == nil {
		p.logger = logging.NewNopLogger()
	}
	if p.location == nil {
		p.location = time.Local
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// IsParseError сообщает, что ошибка - ошибка разбора сообщения.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

func parseError(msg string, cause error) error {
	wrapped := ErrParse
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", ErrParse, cause)
	}
	return apperrors.NewAppError(apperrors.ErrExchangeParse, msg, wrapped)
}

func generateError(msg string, cause error) error {
	wrapped := ErrGenerate
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", ErrGenerate, cause)
	}
	return apperrors.NewAppError(apperrors.ErrExchangeGenerate, msg, wrapped)
}
