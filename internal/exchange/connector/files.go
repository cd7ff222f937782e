package connector

import (
	"path"
	"strconv"
	"time"
)

// QuarantineDir - подкаталог для сообщений, которые не удалось разобрать.
const QuarantineDir = "error"

// MessageFileName формирует имя файла обмена по соглашению 1С:
// Message_<отправитель>_<получатель>.xml.
func MessageFileName(from, to string) string {
	return "Message_" + from + "_" + to + ".xml"
}

// OutgoingFile - файл, который этот узел пишет для партнёра.
func (c Connector) OutgoingFile() string {
	return MessageFileName(c.OwnNode, c.PeerNode)
}

// IncomingFile - файл, который партнёр пишет для этого узла.
func (c Connector) IncomingFile() string {
	return MessageFileName(c.PeerNode, c.OwnNode)
}

// LockFileName возвращает имя файла блокировки для файла обмена.
func LockFileName(fileName string) string {
	return fileName + ".lock"
}

// QuarantineFile возвращает путь, куда переносится неразобранный файл.
func QuarantineFile(fileName string, now time.Time) string {
	return path.Join(QuarantineDir, fileName+"."+strconv.FormatInt(now.Unix(), 10))
}
