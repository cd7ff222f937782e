// Package result содержит итоговые значения конвейера обмена: результат
// проверки структуры объекта, результат обработки пакета объектов и итог
// сеанса обмена.
package result

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

// Validation - результат проверки структуры объекта.
// Используется только для проверки; прочие операции возвращают (T, error).
type Validation struct {
	Valid    bool              `json:"valid"`
	Errors   []string          `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
}

// Valid создаёт успешный результат проверки.
func Valid() Validation {
	return Validation{Valid: true}
}

// Invalid создаёт неуспешный результат с перечнем ошибок.
func Invalid(errs ...string) Validation {
	return Validation{Valid: false, Errors: slices.Clone(errs)}
}

// WithWarning возвращает копию с добавленным предупреждением.
func (v Validation) WithWarning(msg string) Validation {
	out := v.clone()
	out.Warnings = append(out.Warnings, msg)
	return out
}

// WithContext возвращает копию с добавленным значением контекста.
func (v Validation) WithContext(key, value string) Validation {
	out := v.clone()
	if out.Context == nil {
		out.Context = make(map[string]string, 1)
	}
	out.Context[key] = value
	return out
}

// Merge объединяет результаты: валиден только если оба валидны,
// списки склеиваются, контекст объединяется (значения other важнее).
func (v Validation) Merge(other Validation) Validation {
	out := v.clone()
	out.Valid = v.Valid && other.Valid
	out.Errors = append(out.Errors, other.Errors...)
	out.Warnings = append(out.Warnings, other.Warnings...)
	if len(other.Context) > 0 {
		if out.Context == nil {
			out.Context = make(map[string]string, len(other.Context))
		}
		maps.Copy(out.Context, other.Context)
	}
	return out
}

// Err возвращает ошибку с перечнем ошибок проверки или nil для валидного результата.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	if len(v.Errors) == 0 {
		return errors.New("структура объекта некорректна")
	}
	return errors.New(strings.Join(v.Errors, "; "))
}

func (v Validation) clone() Validation {
	return Validation{
		Valid:    v.Valid,
		Errors:   slices.Clone(v.Errors),
		Warnings: slices.Clone(v.Warnings),
		Context:  maps.Clone(v.Context),
	}
}

// Require проверяет наличие непустых значений полей и возвращает
// результат с ошибкой для каждого отсутствующего поля.
func Require(fields map[string]string, names ...string) Validation {
	v := Valid()
	for _, name := range names {
		if strings.TrimSpace(fields[name]) == "" {
			v = v.Merge(Invalid("не заполнено обязательное поле " + name))
		}
	}
	return v
}
