package command

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"
)

// Ошибки регистрации.
var (
	ErrNilHandler  = errors.New("command: nil handler")
	ErrInvalidName = errors.New("command: некорректное имя команды (ожидается kebab-case)")
	ErrDuplicate   = errors.New("command: команда уже зарегистрирована")
)

// validName: строчные буквы и цифры, слова через одиночный дефис, первая - буква.
var validName = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

type registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

var commands = &registry{handlers: map[string]Handler{}}

// Register добавляет обработчик. Повторная регистрация имени - ошибка,
// первый обработчик остаётся в реестре.
func Register(h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	name := h.Name()
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	commands.mu.Lock()
	defer commands.mu.Unlock()
	if _, dup := commands.handlers[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	commands.handlers[name] = h
	return nil
}

// Get ищет обработчик по имени команды.
func Get(name string) (Handler, bool) {
	commands.mu.RLock()
	defer commands.mu.RUnlock()
	h, ok := commands.handlers[name]
	return h, ok
}

// Handlers возвращает обработчики, упорядоченные по имени.
func Handlers() []Handler {
	commands.mu.RLock()
	list := make([]Handler, 0, len(commands.handlers))
	for _, h := range commands.handlers {
		list = append(list, h)
	}
	commands.mu.RUnlock()

	slices.SortFunc(list, func(a, b Handler) int {
		switch an, bn := a.Name(), b.Name(); {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	})
	return list
}

// Names возвращает имена команд по алфавиту.
func Names() []string {
	handlers := Handlers()
	names := make([]string, len(handlers))
	for i, h := range handlers {
		names[i] = h.Name()
	}
	return names
}

// Reset очищает реестр между тестами.
func Reset() {
	commands.mu.Lock()
	defer commands.mu.Unlock()
	commands.handlers = map[string]Handler{}
}
