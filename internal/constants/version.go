package constants

// Версия сборки. Значения подставляются при сборке:
//
//	go build -ldflags "-X github.com/Kargones/apk-exchange/internal/constants.Version=1.2.0"
var (
	Version       = "dev"
	PreCommitHash = "unknown"
)
