// Package constants содержит константы apk-exchange: имена команд,
// переменные окружения, коды завершения и значения по умолчанию.
package constants

// Константы сообщений приложения
const (
	// MsgAppExit - сообщение о завершении работы программы
	MsgAppExit = "Завершение работы программы"
	// MsgErrProcessing - сообщение об обработке ошибки
	MsgErrProcessing = "Обработка ошибки"
)

// Имена команд (значения BR_COMMAND).
const (
	// ActExchangeRun - двусторонний обмен: приём, затем отправка
	ActExchangeRun = "nr-exchange-run"
	// ActExchangeReceive - только приём входящего сообщения
	ActExchangeReceive = "nr-exchange-receive"
	// ActExchangeSend - только отправка изменений
	ActExchangeSend = "nr-exchange-send"
	// ActExchangeConfirm - отправка сообщения-подтверждения
	ActExchangeConfirm = "nr-exchange-confirm"
	// ActExchangeCleanup - очистка журнала обмена
	ActExchangeCleanup = "nr-exchange-cleanup"
	// ActVersion - вывод версии
	ActVersion = "nr-version"
	// ActHelp - список команд
	ActHelp = "help"
)

// Переменные окружения.
const (
	EnvConfigPath   = "BR_CONFIG_PATH"
	EnvCommand      = "BR_COMMAND"
	EnvConnector    = "BR_CONNECTOR"
	EnvOutputFormat = "BR_OUTPUT_FORMAT"
	EnvCleanupDays  = "BR_CLEANUP_DAYS"
	// EnvDryRun - вывести план обмена без обращения к транспорту и базе
	EnvDryRun = "BR_DRY_RUN"
)

// Значения по умолчанию.
const (
	// DefaultConfigPath - файл конфигурации, если BR_CONFIG_PATH не задан
	DefaultConfigPath = "exchange.yaml"
	// DefaultCleanupDays - срок хранения журнала обмена в днях
	DefaultCleanupDays = 30
	// DefaultDatabasePath - файл SQLite по умолчанию
	DefaultDatabasePath = "apk-exchange.db"
	// APIVersion - версия формата JSON-вывода
	APIVersion = "v1"
	// AppName - имя приложения для метрик и трейсинга
	AppName = "apk-exchange"
)

// Коды завершения процесса.
const (
	ExitOK = 0
	// ExitUnknownCommand - команда не зарегистрирована
	ExitUnknownCommand = 2
	// ExitConfigError - конфигурация не загружена
	ExitConfigError = 5
	// ExitCommandFailed - команда завершилась ошибкой
	ExitCommandFailed = 8
)
