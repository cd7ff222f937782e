// Package testutil - помощники тестов команд: перехват stdout и файлы фикстур.
package testutil

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// CaptureStdout перехватывает stdout на время fn. Вывод читается параллельно,
// поэтому большой JSON-результат обмена не упирается в буфер pipe.
func CaptureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	saved := os.Stdout
	os.Stdout = w
	restore := func() { os.Stdout = saved }
	t.Cleanup(restore)

	done := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(r) //nolint:errcheck // ошибка чтения pipe проявится пустым выводом
		done <- data
	}()

	func() {
		defer restore()
		defer w.Close() //nolint:errcheck // закрытие pipe в тесте
		fn()
	}()
	return string(<-done)
}
