package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kargones/apk-exchange/internal/constants"
)

// WriteFile записывает фикстуру dir/name, создавая промежуточные каталоги,
// и возвращает её путь.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), constants.DirPermStandard))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
