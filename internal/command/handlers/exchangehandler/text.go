package exchangehandler

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteText выводит таблицу сеансов обмена: по строке на сеанс.
func (d *Data) WriteText(w io.Writer) error {
	if len(d.Exchanges) == 0 {
		_, err := fmt.Fprintln(w, "Сеансов обмена не было")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ПОДКЛЮЧЕНИЕ\tНАПРАВЛЕНИЕ\tСТАТУС\tСООБЩЕНИЕ\tОБРАБОТАНО\tДЛИТЕЛЬНОСТЬ")
	for _, ex := range d.Exchanges {
		msg := "-"
		if ex.MessageNo > 0 {
			msg = fmt.Sprintf("№%d", ex.MessageNo)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			ex.Connector, ex.Direction, ex.Status, msg,
			ex.Processing.ProcessedCount, ex.Duration().Round(time.Millisecond))
	}
	return tw.Flush()
}
