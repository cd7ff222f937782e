// Package dryrun строит план сеанса обмена без его выполнения.
// При BR_DRY_RUN=true команды обмена выводят, какие файлы и у каких
// узлов будут прочитаны и записаны, не открывая транспорт и базу данных.
package dryrun

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/exchange/connector"
)

// Операции плана.
const (
	OpReceive = "receive"
	OpSend    = "send"
	OpConfirm = "confirm"
	OpCleanup = "cleanup"
)

// IsDryRun проверяет включён ли dry-run режим.
// Возвращает true если BR_DRY_RUN равна "true" (без учёта регистра) или "1".
func IsDryRun() bool {
	val := os.Getenv(constants.EnvDryRun)
	return strings.EqualFold(val, "true") || val == "1"
}

// Step - один шаг плана.
type Step struct {
	Order     int    `json:"order"`
	Operation string `json:"operation"`
	Connector string `json:"connector,omitempty"`
	// Location - адрес каталога обмена без учётных данных.
	Location string `json:"location,omitempty"`
	File     string `json:"file,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Plan - план выполнения команды.
type Plan struct {
	Command string `json:"command"`
	Steps   []Step `json:"steps"`
	Summary string `json:"summary,omitempty"`
}

// BuildPlan создаёт план: для каждого подключения по шагу на каждую операцию.
func BuildPlan(command string, conns []connector.Connector, ops ...string) *Plan {
	plan := &Plan{Command: command, Steps: make([]Step, 0, len(conns)*len(ops))}
	for _, c := range conns {
		for _, op := range ops {
			step := Step{
				Order:     len(plan.Steps) + 1,
				Operation: op,
				Connector: c.Name,
				Location:  Location(c.Transport),
			}
			switch op {
			case OpReceive:
				step.File = c.IncomingFile()
				step.Detail = fmt.Sprintf("приём сообщения от узла %s", c.PeerNode)
			case OpSend:
				step.File = c.OutgoingFile()
				step.Detail = fmt.Sprintf("отправка изменений узлу %s", c.PeerNode)
			case OpConfirm:
				step.File = c.OutgoingFile()
				step.Detail = fmt.Sprintf("подтверждение принятых сообщений узлу %s", c.PeerNode)
			}
			plan.Steps = append(plan.Steps, step)
		}
	}
	plan.Summary = fmt.Sprintf("подключений: %d, шагов: %d", len(conns), len(plan.Steps))
	return plan
}

// Location описывает каталог обмена. Пароль и пользователь в адрес не попадают.
func Location(t connector.TransportSettings) string {
	if t.Type != connector.TransportFTP {
		return "local:" + t.Directory
	}
	host := t.Host
	if t.Port > 0 {
		host = net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	}
	dir := strings.TrimPrefix(t.Directory, "/")
	return "ftp://" + host + "/" + dir
}

// WriteText выводит план в человекочитаемом виде.
func (p *Plan) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "План %s (dry-run, обмен не выполняется)\n", p.Command); err != nil {
		return err
	}
	for _, s := range p.Steps {
		var err error
		if s.Connector == "" {
			_, err = fmt.Fprintf(w, "  %d. %s: %s\n", s.Order, s.Operation, s.Detail)
		} else {
			_, err = fmt.Fprintf(w, "  %d. [%s] %s %s/%s: %s\n",
				s.Order, s.Connector, s.Operation, s.Location, s.File, s.Detail)
		}
		if err != nil {
			return err
		}
	}
	if p.Summary != "" {
		if _, err := fmt.Fprintf(w, "Итого: %s\n", p.Summary); err != nil {
			return err
		}
	}
	return nil
}
