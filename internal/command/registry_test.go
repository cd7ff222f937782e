package command

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/apk-exchange/internal/config"
)

// mockHandler - тестовый обработчик команды.
type mockHandler struct {
	name string
}

func (m *mockHandler) Name() string        { return m.name }
func (m *mockHandler) Description() string { return "mock: " + m.name }
func (m *mockHandler) Execute(_ context.Context, _ *config.Config) error {
	return nil
}

var _ Handler = (*mockHandler)(nil)

func TestRegister_Success(t *testing.T) {
	Reset()

	h := &mockHandler{name: "nr-exchange-run"}
	require.NoError(t, Register(h))

	got, ok := Get("nr-exchange-run")
	assert.True(t, ok, "команда должна быть найдена в реестре")
	assert.Equal(t, h, got, "должен вернуться тот же handler")
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
		wantErr error
	}{
		{"nil handler", nil, ErrNilHandler},
		{"пустое имя", &mockHandler{name: ""}, ErrInvalidName},
		{"заглавные буквы", &mockHandler{name: "NR-Version"}, ErrInvalidName},
		{"подчёркивание", &mockHandler{name: "exchange_run"}, ErrInvalidName},
		{"завершающий дефис", &mockHandler{name: "exchange-"}, ErrInvalidName},
		{"двойной дефис", &mockHandler{name: "exchange--run"}, ErrInvalidName},
		{"начинается с цифры", &mockHandler{name: "1c-exchange"}, ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			err := Register(tt.handler)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, Names())
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	Reset()

	h1 := &mockHandler{name: "dup-command"}
	h2 := &mockHandler{name: "dup-command"}

	require.NoError(t, Register(h1))
	err := Register(h2)
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "dup-command")

	got, _ := Get("dup-command")
	assert.Same(t, h1, got, "первая регистрация не перезаписывается")
}

func TestGet_NotFound(t *testing.T) {
	Reset()

	got, ok := Get("non-existent")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestHandlers_ПоИмени(t *testing.T) {
	Reset()
	beta := &mockHandler{name: "cmd-beta"}
	alpha := &mockHandler{name: "cmd-alpha"}
	require.NoError(t, Register(beta))
	require.NoError(t, Register(alpha))

	list := Handlers()
	require.Len(t, list, 2)
	assert.Same(t, alpha, list[0])
	assert.Same(t, beta, list[1])

	list[0] = nil
	_, ok := Get("cmd-alpha")
	assert.True(t, ok, "изменение списка не влияет на реестр")
}

func TestNames_Отсортированы(t *testing.T) {
	Reset()
	for _, n := range []string{"nr-version", "help", "nr-exchange-run"} {
		require.NoError(t, Register(&mockHandler{name: n}))
	}
	assert.Equal(t, []string{"help", "nr-exchange-run", "nr-version"}, Names())
}

func TestConcurrentAccess(t *testing.T) {
	Reset()

	const numGoroutines = 100
	var wg sync.WaitGroup
	wg.Add(numGoroutines * 2)

	for i := 0; i < numGoroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			_ = Register(&mockHandler{name: fmt.Sprintf("concurrent-cmd-%d", idx)})
		}(i)
	}
	for i := 0; i < numGoroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			Get(fmt.Sprintf("concurrent-cmd-%d", idx))
		}(i)
	}
	wg.Wait()

	assert.Len(t, Names(), numGoroutines)
}
