package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureStdout_БольшойВывод(t *testing.T) {
	// Больше типичного буфера pipe в 64 КБ.
	line := strings.Repeat("x", 1023) + "\n"
	out := CaptureStdout(t, func() {
		for i := 0; i < 256; i++ {
			fmt.Print(line)
		}
	})
	assert.Len(t, out, 256*1024)
}

func TestCaptureStdout_ВосстанавливаетStdout(t *testing.T) {
	saved := os.Stdout
	_ = CaptureStdout(t, func() { fmt.Print("x") })
	assert.Same(t, saved, os.Stdout)
}

func TestWriteFile_СоздаётКаталоги(t *testing.T) {
	path := WriteFile(t, t.TempDir(), filepath.Join("in", "Message_ERP_APK.xml"), []byte("<Message/>"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<Message/>", string(data))
}
