// Package handlers явно регистрирует все обработчики команд.
// Регистрация без init() делает набор команд видимым в main и тестах.
package handlers

import (
	"github.com/Kargones/apk-exchange/internal/command/handlers/cleanuphandler"
	"github.com/Kargones/apk-exchange/internal/command/handlers/exchangehandler"
	"github.com/Kargones/apk-exchange/internal/command/handlers/help"
	"github.com/Kargones/apk-exchange/internal/command/handlers/version"
)

// RegisterAll регистрирует все обработчики в глобальном реестре.
// Вызывается один раз из main() до выбора команды.
func RegisterAll() error {
	for _, register := range []func() error{
		exchangehandler.RegisterCmd,
		cleanuphandler.RegisterCmd,
		version.RegisterCmd,
		help.RegisterCmd,
	} {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
