// Package apperrors предоставляет структурированные ошибки приложения.
// Переименован из errors чтобы избежать конфликта со стандартной библиотекой.
package apperrors

import (
	"errors"
	"fmt"
)

// Коды ошибок в иерархическом формате: CATEGORY.SPECIFIC_ERROR.
// Позволяет grep по категориям: `grep "EXCHANGE\."` для всех ошибок обмена.
const (
	// Category: CONFIG - ошибки загрузки и парсинга конфигурации.
	ErrConfigLoad     = "CONFIG.LOAD_FAILED"
	ErrConfigParse    = "CONFIG.PARSE_FAILED"
	ErrConfigValidate = "CONFIG.VALIDATION_FAILED"

	// Category: COMMAND - ошибки выполнения команд.
	ErrCommandNotFound = "COMMAND.NOT_FOUND"
	ErrCommandExec     = "COMMAND.EXEC_FAILED"

	// Category: OUTPUT - ошибки форматирования вывода.
	ErrOutputFormat = "OUTPUT.FORMAT_FAILED"

	// Category: EXCHANGE - ошибки разбора и формирования сообщений обмена.
	ErrExchangeParse    = "EXCHANGE.PARSE_FAILED"
	ErrExchangeRouting  = "EXCHANGE.ROUTING_FAILED"
	ErrExchangeGenerate = "EXCHANGE.GENERATE_FAILED"

	// Category: MAPPING - ошибки преобразования объектов.
	ErrMappingDependency = "MAPPING.DEPENDENCY_NOT_READY"
	ErrMappingFailed     = "MAPPING.FAILED"

	// Category: TRANSPORT - ошибки файлового транспорта (FTP, локальный каталог).
	ErrTransportConnect = "TRANSPORT.CONNECT_FAILED"
	ErrTransportIO      = "TRANSPORT.IO_FAILED"
	ErrLockConflict     = "LOCK.CONFLICT"

	// Category: STORE - ошибки хранилища.
	ErrStoreOpen    = "STORE.OPEN_FAILED"
	ErrStoreMigrate = "STORE.MIGRATION_FAILED"
	ErrStoreQuery   = "STORE.QUERY_FAILED"
)

// AppError представляет структурированную ошибку приложения.
// Реализует error interface и поддерживает wrapping через Unwrap().
//
// ВАЖНО: Message НЕ ДОЛЖЕН содержать секреты (пароли, токены, ключи).
// Используйте generic описания без конкретных значений.
//
// Пример использования:
//
//	return apperrors.NewAppError(apperrors.ErrExchangeParse,
//	    "отсутствует обязательное поле заголовка",
//	    err)
type AppError struct {
	// Code - машиночитаемый код ошибки в формате CATEGORY.SPECIFIC.
	Code string `json:"code"`

	// Message - человекочитаемое описание ошибки.
	// НЕ ДОЛЖЕН содержать секреты!
	Message string `json:"message"`

	// Cause - wrapped оригинальная ошибка.
	// Не сериализуется в JSON для безопасности (может содержать stack trace).
	Cause error `json:"-"`
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap возвращает wrapped ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError создаёт новый AppError с заданным кодом, сообщением и причиной.
//
// ВАЖНО: message НЕ ДОЛЖЕН содержать секреты!
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf возвращает код первой AppError в цепочке или пустую строку.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode проверяет, содержит ли цепочка ошибок AppError с указанным кодом.
func IsCode(err error, code string) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}
