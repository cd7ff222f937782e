// Package command - реестр команд apk-exchange. Команда выбирается по
// BR_COMMAND, обработчики регистрирует handlers.RegisterAll() при старте.
package command

import (
	"context"

	"github.com/Kargones/apk-exchange/internal/config"
)

// Handler - обработчик одной команды. Execute пишет результат в stdout,
// а возвращённая ошибка превращается в ненулевой код выхода.
type Handler interface {
	// Name - имя в kebab-case, совпадает с константой Act* из internal/constants.
	Name() string
	Description() string
	Execute(ctx context.Context, cfg *config.Config) error
}
