package constants

import "os"

// Права на каталоги и файлы обмена.
const (
	// DirPermStandard - каталог обмена и подкаталог карантина (owner rwx, group r-x).
	DirPermStandard os.FileMode = 0750

	// FilePermReadWrite - файлы сообщений: узел-партнёр может работать под другим пользователем.
	FilePermReadWrite os.FileMode = 0644
)
